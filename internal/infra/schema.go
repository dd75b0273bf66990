package infra

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema defines the tables and indexes the engine relies on. The unique
// (owner_id, currency) index backs the one-wallet-per-currency invariant, the
// partial unique index on reference backs idempotency, and the exchange_rates
// primary key keeps one rate per ordered currency pair.
const Schema = `
CREATE TABLE IF NOT EXISTS wallets (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    currency TEXT NOT NULL,
    balance NUMERIC(20,8) NOT NULL DEFAULT 0 CHECK (balance >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_owner_currency
    ON wallets (owner_id, currency);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    wallet_id TEXT NOT NULL REFERENCES wallets (id),
    kind TEXT NOT NULL,
    amount NUMERIC(20,8) NOT NULL CHECK (amount > 0),
    currency TEXT NOT NULL,
    reference TEXT,
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_entries_reference
    ON ledger_entries (reference) WHERE reference IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_ledger_entries_wallet
    ON ledger_entries (wallet_id, created_at DESC);

CREATE TABLE IF NOT EXISTS exchange_rates (
    base_currency TEXT NOT NULL,
    target_currency TEXT NOT NULL,
    rate NUMERIC(20,8) NOT NULL CHECK (rate > 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (base_currency, target_currency)
);

CREATE TABLE IF NOT EXISTS bank_accounts (
    account_number TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bank_accounts_user
    ON bank_accounts (user_id);
`

// EnsureSchema creates all tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, Schema)
	return err
}
