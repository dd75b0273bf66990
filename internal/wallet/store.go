package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrWalletNotFound indicates the referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletExists indicates a wallet already exists for the (owner, currency) pair.
	ErrWalletExists = errors.New("wallet already exists")

	// ErrInsufficientFunds occurs when a wallet lacks available balance to cover a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates the idempotency reference was already recorded.
	// It is the expected outcome of a retried request, not corruption.
	ErrDuplicateReference = errors.New("duplicate transaction reference")

	// ErrCurrencyMismatch indicates the requested currency does not match the wallet's.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrTransientConflict marks a retryable storage-level write conflict.
	ErrTransientConflict = errors.New("transient storage conflict")
)

// Tx is an explicit unit of work. Every mutation performed through it commits
// or aborts as one. Rollback after a successful Commit is a no-op so callers
// can defer it unconditionally.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DebitInput captures one debit leg. Kind defaults to EntryDebit when empty.
type DebitInput struct {
	WalletID string
	Amount   decimal.Decimal
	Currency string
	Ref      string
	Kind     EntryKind
	Metadata map[string]string
}

// CreditInput captures one credit leg. Kind defaults to EntryCredit when empty.
type CreditInput struct {
	WalletID string
	Amount   decimal.Decimal
	Currency string
	Ref      string
	Kind     EntryKind
	Metadata map[string]string
}

// Store is the only component allowed to change a wallet balance. Mutating
// calls require the caller's open unit of work and never start their own.
type Store interface {
	// Begin opens a unit of work. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Tx, error)

	CreateWallet(ctx context.Context, ownerID, currency string) (Wallet, error)
	GetWallet(ctx context.Context, id string) (Wallet, error)
	GetWalletByOwnerCurrency(ctx context.Context, ownerID, currency string) (Wallet, error)

	// GetOrCreateHoldingWallet returns the house wallet for a currency, creating
	// it with zero balance if absent. Safe under concurrent first access.
	GetOrCreateHoldingWallet(ctx context.Context, currency string) (Wallet, error)

	// Debit atomically verifies existence, currency, balance and reference
	// uniqueness, decrements the balance and records one debit entry under
	// ref+"-DEBIT". The balance check and decrement are a single conditional
	// update so concurrent debits cannot both observe a stale balance.
	Debit(ctx context.Context, tx Tx, in DebitInput) (Wallet, LedgerEntry, error)

	// Credit is the symmetric increment, recording ref+"-CREDIT".
	Credit(ctx context.Context, tx Tx, in CreditInput) (Wallet, LedgerEntry, error)

	// History returns committed ledger entries for a wallet, newest first.
	History(ctx context.Context, walletID string, page, limit int) ([]LedgerEntry, error)

	// ReferenceExists reports whether any committed entry was recorded under
	// ref or one of its suffixed legs.
	ReferenceExists(ctx context.Context, ref string) (bool, error)
}
