package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. Balance
// checks and decrements happen in a single conditional UPDATE, and every
// multi-leg operation runs inside the caller's pgx transaction.
type PostgresStore struct {
	db         *pgxpool.Pool
	houseOwner string
}

// NewPostgresStore constructs a Postgres-backed wallet store. houseOwnerID
// identifies the reserved owner of per-currency holding wallets.
func NewPostgresStore(db *pgxpool.Pool, houseOwnerID string) *PostgresStore {
	return &PostgresStore{db: db, houseOwner: houseOwnerID}
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Commit(ctx context.Context) error {
	return classify(t.tx.Commit(ctx))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// Begin opens a database transaction as the unit of work.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, classify(err)
	}
	return &pgTx{tx: tx}, nil
}

func pgTxFrom(tx Tx) (*pgTx, error) {
	pt, ok := tx.(*pgTx)
	if !ok || pt == nil {
		return nil, errors.New("an open unit of work from this store is required")
	}
	return pt, nil
}

const walletColumns = `id, owner_id, currency, balance::text, created_at, updated_at`

// CreateWallet provisions a wallet with zero balance.
func (s *PostgresStore) CreateWallet(ctx context.Context, ownerID, currency string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `INSERT INTO wallets (id, owner_id, currency, balance)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (owner_id, currency) DO NOTHING
        RETURNING `+walletColumns, uuid.NewString(), ownerID, currency)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletExists
	}
	return w, classify(err)
}

// GetWallet fetches a wallet by identifier.
func (s *PostgresStore) GetWallet(ctx context.Context, id string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	return w, classify(err)
}

// GetWalletByOwnerCurrency fetches the wallet for an (owner, currency) pair.
func (s *PostgresStore) GetWalletByOwnerCurrency(ctx context.Context, ownerID, currency string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets
        WHERE owner_id = $1 AND currency = $2`, ownerID, currency)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, ErrWalletNotFound
	}
	return w, classify(err)
}

// GetOrCreateHoldingWallet returns the house wallet for a currency, creating it
// atomically if absent. The upsert-if-absent keeps concurrent first access safe.
func (s *PostgresStore) GetOrCreateHoldingWallet(ctx context.Context, currency string) (Wallet, error) {
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, currency, balance)
        VALUES ($1, $2, $3, 0)
        ON CONFLICT (owner_id, currency) DO NOTHING`, uuid.NewString(), s.houseOwner, currency)
	if err != nil {
		return Wallet{}, classify(err)
	}
	return s.GetWalletByOwnerCurrency(ctx, s.houseOwner, currency)
}

// Debit decrements the wallet balance and records the debit entry within the
// caller's unit of work.
func (s *PostgresStore) Debit(ctx context.Context, tx Tx, in DebitInput) (Wallet, LedgerEntry, error) {
	pt, err := pgTxFrom(tx)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	if in.Amount.Sign() <= 0 {
		return Wallet{}, LedgerEntry{}, errors.New("debit amount must be positive")
	}

	ref := in.Ref + debitSuffix
	if err := s.checkReference(ctx, pt, ref); err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	row := pt.tx.QueryRow(ctx, `UPDATE wallets
        SET balance = balance - $2::numeric, updated_at = now()
        WHERE id = $1 AND currency = $3 AND balance >= $2::numeric
        RETURNING `+walletColumns, in.WalletID, in.Amount.String(), in.Currency)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, LedgerEntry{}, s.explainDebitFailure(ctx, pt, in)
	}
	if err != nil {
		return Wallet{}, LedgerEntry{}, classify(err)
	}

	kind := in.Kind
	if kind == "" {
		kind = EntryDebit
	}
	entry, err := s.insertEntry(ctx, pt, w.ID, kind, in.Amount, in.Currency, ref, in.Metadata)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	return w, entry, nil
}

// Credit increments the wallet balance and records the credit entry within the
// caller's unit of work.
func (s *PostgresStore) Credit(ctx context.Context, tx Tx, in CreditInput) (Wallet, LedgerEntry, error) {
	pt, err := pgTxFrom(tx)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	if in.Amount.Sign() <= 0 {
		return Wallet{}, LedgerEntry{}, errors.New("credit amount must be positive")
	}

	ref := in.Ref + creditSuffix
	if err := s.checkReference(ctx, pt, ref); err != nil {
		return Wallet{}, LedgerEntry{}, err
	}

	row := pt.tx.QueryRow(ctx, `UPDATE wallets
        SET balance = balance + $2::numeric, updated_at = now()
        WHERE id = $1 AND currency = $3
        RETURNING `+walletColumns, in.WalletID, in.Amount.String(), in.Currency)
	w, err := scanWallet(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Wallet{}, LedgerEntry{}, s.explainLookupFailure(ctx, pt, in.WalletID)
	}
	if err != nil {
		return Wallet{}, LedgerEntry{}, classify(err)
	}

	kind := in.Kind
	if kind == "" {
		kind = EntryCredit
	}
	entry, err := s.insertEntry(ctx, pt, w.ID, kind, in.Amount, in.Currency, ref, in.Metadata)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	return w, entry, nil
}

// History returns ledger entries for a wallet, newest first.
func (s *PostgresStore) History(ctx context.Context, walletID string, page, limit int) ([]LedgerEntry, error) {
	if _, err := s.GetWallet(ctx, walletID); err != nil {
		return nil, err
	}

	offset := (page - 1) * limit
	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, kind, amount::text, currency,
            COALESCE(reference, ''), metadata, created_at
        FROM ledger_entries
        WHERE wallet_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, walletID, limit, offset)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var (
			e         LedgerEntry
			amountStr string
			metadata  []byte
		)
		if err := rows.Scan(&e.ID, &e.WalletID, &e.Kind, &amountStr, &e.Currency, &e.Reference, &metadata, &e.CreatedAt); err != nil {
			return nil, classify(err)
		}
		if e.Amount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("parse entry amount: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode entry metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, classify(rows.Err())
}

// ReferenceExists reports whether ref, or any of its suffixed legs, was recorded.
func (s *PostgresStore) ReferenceExists(ctx context.Context, ref string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(
        SELECT 1 FROM ledger_entries WHERE reference = $1 OR reference LIKE $1 || '-%')`, ref).Scan(&exists)
	return exists, classify(err)
}

func (s *PostgresStore) checkReference(ctx context.Context, pt *pgTx, ref string) error {
	var exists bool
	if err := pt.tx.QueryRow(ctx, `SELECT EXISTS(
        SELECT 1 FROM ledger_entries WHERE reference = $1)`, ref).Scan(&exists); err != nil {
		return classify(err)
	}
	if exists {
		return ErrDuplicateReference
	}
	return nil
}

func (s *PostgresStore) insertEntry(ctx context.Context, pt *pgTx, walletID string, kind EntryKind, amount decimal.Decimal, currency, ref string, metadata map[string]string) (LedgerEntry, error) {
	entry := LedgerEntry{
		ID:        uuid.NewString(),
		WalletID:  walletID,
		Kind:      kind,
		Amount:    amount,
		Currency:  currency,
		Reference: ref,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	var metadataJSON []byte
	if len(metadata) > 0 {
		var err error
		if metadataJSON, err = json.Marshal(metadata); err != nil {
			return LedgerEntry{}, fmt.Errorf("encode entry metadata: %w", err)
		}
	}

	_, err := pt.tx.Exec(ctx, `INSERT INTO ledger_entries
            (id, wallet_id, kind, amount, currency, reference, metadata, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`,
		entry.ID, entry.WalletID, string(entry.Kind), entry.Amount.String(),
		entry.Currency, entry.Reference, metadataJSON, entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return LedgerEntry{}, ErrDuplicateReference
		}
		return LedgerEntry{}, classify(err)
	}
	return entry, nil
}

// explainDebitFailure disambiguates a conditional-update miss: the wallet may
// be missing, hold another currency, or lack funds.
func (s *PostgresStore) explainDebitFailure(ctx context.Context, pt *pgTx, in DebitInput) error {
	var (
		currency   string
		balanceStr string
	)
	err := pt.tx.QueryRow(ctx, `SELECT currency, balance::text FROM wallets WHERE id = $1`, in.WalletID).
		Scan(&currency, &balanceStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWalletNotFound
	}
	if err != nil {
		return classify(err)
	}
	if currency != in.Currency {
		return ErrCurrencyMismatch
	}
	return ErrInsufficientFunds
}

func (s *PostgresStore) explainLookupFailure(ctx context.Context, pt *pgTx, walletID string) error {
	var currency string
	err := pt.tx.QueryRow(ctx, `SELECT currency FROM wallets WHERE id = $1`, walletID).Scan(&currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrWalletNotFound
	}
	if err != nil {
		return classify(err)
	}
	return ErrCurrencyMismatch
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w          Wallet
		balanceStr string
	)
	if err := row.Scan(&w.ID, &w.OwnerID, &w.Currency, &balanceStr, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return Wallet{}, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return Wallet{}, fmt.Errorf("parse wallet balance: %w", err)
	}
	w.Balance = balance
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

// classify maps serialization failures and deadlocks to ErrTransientConflict
// so the retry policy can distinguish them from business errors.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", ErrTransientConflict, pgErr.Code)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
