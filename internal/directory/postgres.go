package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory stores account numbers in PostgreSQL.
type PostgresDirectory struct {
	db *pgxpool.Pool
}

// NewPostgresDirectory builds a directory backed by PostgreSQL.
func NewPostgresDirectory(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Resolve returns the account registered under accountNumber.
func (d *PostgresDirectory) Resolve(ctx context.Context, accountNumber string) (Account, error) {
	var account Account
	err := d.db.QueryRow(ctx, `SELECT account_number, user_id, created_at
        FROM bank_accounts WHERE account_number = $1`, accountNumber).
		Scan(&account.AccountNumber, &account.UserID, &account.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

// Provision mints a unique account number for the user. Collisions on the
// random number simply re-roll.
func (d *PostgresDirectory) Provision(ctx context.Context, userID string) (Account, error) {
	const maxAttempts = 10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		number := randomAccountNumber()
		tag, err := d.db.Exec(ctx, `INSERT INTO bank_accounts (account_number, user_id)
            VALUES ($1, $2)
            ON CONFLICT (account_number) DO NOTHING`, number, userID)
		if err != nil {
			return Account{}, err
		}
		if tag.RowsAffected() == 1 {
			return Account{AccountNumber: number, UserID: userID, CreatedAt: time.Now().UTC()}, nil
		}
	}
	return Account{}, fmt.Errorf("could not mint a unique account number after %d attempts", maxAttempts)
}
