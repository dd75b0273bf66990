package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is a stored-value account holding a single currency for one owner.
// There is exactly one wallet per (owner, currency) pair. Holding wallets are
// regular wallets owned by the configured house identity.
type Wallet struct {
	ID        string
	OwnerID   string
	Currency  string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryKind classifies a ledger entry by the business operation that produced it.
type EntryKind string

const (
	// EntryCredit marks a plain balance increment.
	EntryCredit EntryKind = "credit"
	// EntryDebit marks a plain balance decrement.
	EntryDebit EntryKind = "debit"
	// EntryConversion marks one leg of a cross-currency conversion.
	EntryConversion EntryKind = "conversion"
	// EntryTransfer marks one leg of a wallet-to-wallet transfer.
	EntryTransfer EntryKind = "transfer"
)

// LedgerEntry records one balance change. Entries are append-only and immutable;
// every business operation nets its entries to zero across the wallets it touches.
type LedgerEntry struct {
	ID        string
	WalletID  string
	Kind      EntryKind
	Amount    decimal.Decimal
	Currency  string
	Reference string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Balance is a point-in-time read of a wallet's available funds.
type Balance struct {
	WalletID string
	Amount   decimal.Decimal
	Currency string
	AsOf     time.Time
}

const (
	debitSuffix  = "-DEBIT"
	creditSuffix = "-CREDIT"
)
