package fx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrRateNotFound indicates no rate is published for the ordered currency pair.
var ErrRateNotFound = errors.New("exchange rate not found")

// Rate is the published conversion rate for an ordered currency pair. Rates
// are read-only to the engine; an external process maintains them.
type Rate struct {
	Base      string
	Target    string
	Rate      decimal.Decimal
	UpdatedAt time.Time
}

// RateSource looks up exchange rates.
type RateSource interface {
	Lookup(ctx context.Context, base, target string) (Rate, error)
}

// MemoryRates is an in-memory RateSource for tests and database-less runs.
type MemoryRates struct {
	mu    sync.RWMutex
	rates map[string]Rate
}

// NewMemoryRates constructs an empty in-memory rate source.
func NewMemoryRates() *MemoryRates {
	return &MemoryRates{rates: make(map[string]Rate)}
}

// Set publishes a rate for the ordered (base, target) pair.
func (m *MemoryRates) Set(base, target string, rate decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[base+"/"+target] = Rate{Base: base, Target: target, Rate: rate, UpdatedAt: time.Now().UTC()}
}

// Lookup returns the rate for the ordered pair.
func (m *MemoryRates) Lookup(_ context.Context, base, target string) (Rate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rate, ok := m.rates[base+"/"+target]
	if !ok {
		return Rate{}, ErrRateNotFound
	}
	return rate, nil
}

// PostgresRates reads exchange rates from PostgreSQL.
type PostgresRates struct {
	db *pgxpool.Pool
}

// NewPostgresRates constructs a Postgres-backed rate source.
func NewPostgresRates(db *pgxpool.Pool) *PostgresRates {
	return &PostgresRates{db: db}
}

// Lookup returns the rate for the ordered pair.
func (r *PostgresRates) Lookup(ctx context.Context, base, target string) (Rate, error) {
	var (
		rateStr   string
		updatedAt time.Time
	)
	err := r.db.QueryRow(ctx, `SELECT rate::text, updated_at FROM exchange_rates
        WHERE base_currency = $1 AND target_currency = $2`, base, target).
		Scan(&rateStr, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rate{}, ErrRateNotFound
	}
	if err != nil {
		return Rate{}, err
	}

	value, err := decimal.NewFromString(rateStr)
	if err != nil {
		return Rate{}, fmt.Errorf("parse exchange rate: %w", err)
	}
	return Rate{Base: base, Target: target, Rate: value, UpdatedAt: updatedAt.UTC()}, nil
}
