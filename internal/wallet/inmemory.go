package wallet

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryStore is a concurrency-safe in-memory Store useful for unit tests and
// for running the API without a database. The store mutex is held for the life
// of a unit of work, so lookups needed by an operation must happen before
// Begin; this mirrors how the orchestration layer sequences its calls.
type memoryStore struct {
	houseOwner string

	mu      sync.Mutex
	wallets map[string]*Wallet
	byOwner map[string]string // ownerID+"\x00"+currency -> wallet id
	entries map[string][]LedgerEntry
	refs    map[string]struct{}
}

// NewInMemory creates an in-memory wallet store. houseOwnerID identifies the
// reserved owner of per-currency holding wallets.
func NewInMemory(houseOwnerID string) Store {
	return &memoryStore{
		houseOwner: houseOwnerID,
		wallets:    make(map[string]*Wallet),
		byOwner:    make(map[string]string),
		entries:    make(map[string][]LedgerEntry),
		refs:       make(map[string]struct{}),
	}
}

type memTx struct {
	s        *memoryStore
	balances map[string]decimal.Decimal
	staged   []LedgerEntry
	refs     map[string]struct{}
	done     bool
}

func ownerKey(ownerID, currency string) string {
	return ownerID + "\x00" + currency
}

func (s *memoryStore) Begin(_ context.Context) (Tx, error) {
	s.mu.Lock()
	return &memTx{
		s:        s,
		balances: make(map[string]decimal.Decimal),
		refs:     make(map[string]struct{}),
	}, nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return errors.New("unit of work already finished")
	}
	t.done = true
	now := time.Now().UTC()
	for id, balance := range t.balances {
		t.s.wallets[id].Balance = balance
		t.s.wallets[id].UpdatedAt = now
	}
	for _, entry := range t.staged {
		t.s.entries[entry.WalletID] = append(t.s.entries[entry.WalletID], entry)
	}
	for ref := range t.refs {
		t.s.refs[ref] = struct{}{}
	}
	t.s.mu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (s *memoryStore) memTxFrom(tx Tx) (*memTx, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt == nil {
		return nil, errors.New("an open unit of work from this store is required")
	}
	if mt.done {
		return nil, errors.New("unit of work already finished")
	}
	return mt, nil
}

func (s *memoryStore) CreateWallet(_ context.Context, ownerID, currency string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createWalletLocked(ownerID, currency)
}

func (s *memoryStore) createWalletLocked(ownerID, currency string) (Wallet, error) {
	key := ownerKey(ownerID, currency)
	if _, exists := s.byOwner[key]; exists {
		return Wallet{}, ErrWalletExists
	}
	now := time.Now().UTC()
	w := &Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[w.ID] = w
	s.byOwner[key] = w.ID
	return *w, nil
}

func (s *memoryStore) GetWallet(_ context.Context, id string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *w, nil
}

func (s *memoryStore) GetWalletByOwnerCurrency(_ context.Context, ownerID, currency string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byOwner[ownerKey(ownerID, currency)]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return *s.wallets[id], nil
}

func (s *memoryStore) GetOrCreateHoldingWallet(_ context.Context, currency string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byOwner[ownerKey(s.houseOwner, currency)]; ok {
		return *s.wallets[id], nil
	}
	return s.createWalletLocked(s.houseOwner, currency)
}

func (s *memoryStore) Debit(_ context.Context, tx Tx, in DebitInput) (Wallet, LedgerEntry, error) {
	mt, err := s.memTxFrom(tx)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	if in.Amount.Sign() <= 0 {
		return Wallet{}, LedgerEntry{}, errors.New("debit amount must be positive")
	}

	ref := in.Ref + debitSuffix
	if s.refUsed(mt, ref) {
		return Wallet{}, LedgerEntry{}, ErrDuplicateReference
	}

	w, ok := s.wallets[in.WalletID]
	if !ok {
		return Wallet{}, LedgerEntry{}, ErrWalletNotFound
	}
	if w.Currency != in.Currency {
		return Wallet{}, LedgerEntry{}, ErrCurrencyMismatch
	}

	balance := mt.balanceOf(w)
	if balance.Cmp(in.Amount) < 0 {
		return Wallet{}, LedgerEntry{}, ErrInsufficientFunds
	}
	mt.balances[w.ID] = balance.Sub(in.Amount)

	kind := in.Kind
	if kind == "" {
		kind = EntryDebit
	}
	entry := s.stageEntry(mt, w.ID, kind, in.Amount, in.Currency, ref, in.Metadata)

	updated := *w
	updated.Balance = mt.balances[w.ID]
	return updated, entry, nil
}

func (s *memoryStore) Credit(_ context.Context, tx Tx, in CreditInput) (Wallet, LedgerEntry, error) {
	mt, err := s.memTxFrom(tx)
	if err != nil {
		return Wallet{}, LedgerEntry{}, err
	}
	if in.Amount.Sign() <= 0 {
		return Wallet{}, LedgerEntry{}, errors.New("credit amount must be positive")
	}

	ref := in.Ref + creditSuffix
	if s.refUsed(mt, ref) {
		return Wallet{}, LedgerEntry{}, ErrDuplicateReference
	}

	w, ok := s.wallets[in.WalletID]
	if !ok {
		return Wallet{}, LedgerEntry{}, ErrWalletNotFound
	}
	if w.Currency != in.Currency {
		return Wallet{}, LedgerEntry{}, ErrCurrencyMismatch
	}

	mt.balances[w.ID] = mt.balanceOf(w).Add(in.Amount)

	kind := in.Kind
	if kind == "" {
		kind = EntryCredit
	}
	entry := s.stageEntry(mt, w.ID, kind, in.Amount, in.Currency, ref, in.Metadata)

	updated := *w
	updated.Balance = mt.balances[w.ID]
	return updated, entry, nil
}

func (s *memoryStore) History(_ context.Context, walletID string, page, limit int) ([]LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[walletID]; !ok {
		return nil, ErrWalletNotFound
	}
	all := s.entries[walletID]
	offset := (page - 1) * limit

	out := make([]LedgerEntry, 0, limit)
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *memoryStore) ReferenceExists(_ context.Context, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[ref]; ok {
		return true, nil
	}
	prefix := ref + "-"
	for r := range s.refs {
		if strings.HasPrefix(r, prefix) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) refUsed(mt *memTx, ref string) bool {
	if _, ok := s.refs[ref]; ok {
		return true
	}
	_, ok := mt.refs[ref]
	return ok
}

func (s *memoryStore) stageEntry(mt *memTx, walletID string, kind EntryKind, amount decimal.Decimal, currency, ref string, metadata map[string]string) LedgerEntry {
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
	mt.staged = append(mt.staged, entry)
	mt.refs[ref] = struct{}{}
	return entry
}

func (t *memTx) balanceOf(w *Wallet) decimal.Decimal {
	if b, ok := t.balances[w.ID]; ok {
		return b
	}
	return w.Balance
}
