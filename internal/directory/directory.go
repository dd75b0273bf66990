// Package directory maps external-facing account numbers to the users who own
// them. The engine only resolves; provisioning happens at registration time.
package directory

import (
	"context"
	"errors"
	"time"
)

// ErrAccountNotFound indicates no account exists for the given number.
var ErrAccountNotFound = errors.New("account not found")

// Account links a routable account number to its owning user.
type Account struct {
	AccountNumber string
	UserID        string
	CreatedAt     time.Time
}

// Directory resolves and provisions account numbers.
type Directory interface {
	// Resolve returns the account registered under accountNumber.
	Resolve(ctx context.Context, accountNumber string) (Account, error)

	// Provision mints a unique account number for the user.
	Provision(ctx context.Context, userID string) (Account, error)
}
