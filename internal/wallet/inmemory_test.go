package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	return NewInMemory("house")
}

func mustWallet(t *testing.T, s Store, ownerID, currency string, balance string) Wallet {
	t.Helper()
	w, err := s.CreateWallet(context.Background(), ownerID, currency)
	if err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	if balance != "" {
		SeedBalance(s, w.ID, decimal.RequireFromString(balance))
	}
	return w
}

func TestDebitCreditLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	updated, debitEntry, err := s.Debit(ctx, tx, DebitInput{
		WalletID: w.ID,
		Amount:   decimal.RequireFromString("30"),
		Currency: "USD",
		Ref:      "op-1",
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("70")) {
		t.Fatalf("expected balance 70 got %s", updated.Balance)
	}
	if debitEntry.Reference != "op-1-DEBIT" {
		t.Fatalf("expected debit reference op-1-DEBIT got %s", debitEntry.Reference)
	}
	if debitEntry.Kind != EntryDebit {
		t.Fatalf("expected kind %s got %s", EntryDebit, debitEntry.Kind)
	}

	updated, creditEntry, err := s.Credit(ctx, tx, CreditInput{
		WalletID: w.ID,
		Amount:   decimal.RequireFromString("5"),
		Currency: "USD",
		Ref:      "op-2",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if !updated.Balance.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("expected balance 75 got %s", updated.Balance)
	}
	if creditEntry.Reference != "op-2-CREDIT" {
		t.Fatalf("expected credit reference op-2-CREDIT got %s", creditEntry.Reference)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("expected committed balance 75 got %s", got.Balance)
	}

	entries, err := s.History(ctx, w.ID, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(entries))
	}
	// Newest first.
	if entries[0].Reference != "op-2-CREDIT" || entries[1].Reference != "op-1-DEBIT" {
		t.Fatalf("unexpected order: %s, %s", entries[0].Reference, entries[1].Reference)
	}
}

func TestDebitInsufficientFundsLeavesWalletUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "10")

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_, _, err = s.Debit(ctx, tx, DebitInput{
		WalletID: w.ID,
		Amount:   decimal.RequireFromString("10.01"),
		Currency: "USD",
		Ref:      "op-1",
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds got %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected balance 10 got %s", got.Balance)
	}
	entries, err := s.History(ctx, w.ID, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries got %d", len(entries))
	}
}

func TestDebitCurrencyMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) // nolint:errcheck

	_, _, err := s.Debit(ctx, tx, DebitInput{
		WalletID: w.ID,
		Amount:   decimal.RequireFromString("1"),
		Currency: "EUR",
		Ref:      "op-1",
	})
	if !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch got %v", err)
	}
}

func TestDuplicateReferenceRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, _ := s.Begin(ctx)
	if _, _, err := s.Debit(ctx, tx, DebitInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: "op-1"}); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	tx2, _ := s.Begin(ctx)
	defer tx2.Rollback(ctx) // nolint:errcheck
	_, _, err := s.Debit(ctx, tx2, DebitInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: "op-1"})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference got %v", err)
	}

	// The base reference is visible through its suffixed legs.
	exists, err := s.ReferenceExists(ctx, "op-1")
	if err != nil {
		t.Fatalf("reference exists: %v", err)
	}
	if !exists {
		t.Fatal("expected op-1 to be recorded")
	}
}

func TestDuplicateReferenceWithinSameTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, _, err := s.Debit(ctx, tx, DebitInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: "op-1"}); err != nil {
		t.Fatalf("first debit: %v", err)
	}
	_, _, err := s.Debit(ctx, tx, DebitInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: "op-1"})
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference got %v", err)
	}
}

func TestConcurrentDebitsCannotOverspend(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	debit := func(ref string) error {
		tx, err := s.Begin(ctx)
		if err != nil {
			return err
		}
		_, _, err = s.Debit(ctx, tx, DebitInput{
			WalletID: w.ID,
			Amount:   decimal.RequireFromString("80"),
			Currency: "USD",
			Ref:      ref,
		})
		if err != nil {
			tx.Rollback(ctx) // nolint:errcheck
			return err
		}
		return tx.Commit(ctx)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, ref := range []string{"op-a", "op-b"} {
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			results[i] = debit(ref)
		}(i, ref)
	}
	wg.Wait()

	var failures int
	for _, err := range results {
		if err != nil {
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("unexpected error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly one debit to fail, got %d failures", failures)
	}

	got, err := s.GetWallet(ctx, w.ID)
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if !got.Balance.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("expected balance 20 got %s", got.Balance)
	}
}

func TestRollbackDiscardsStagedWork(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, _ := s.Begin(ctx)
	if _, _, err := s.Debit(ctx, tx, DebitInput{WalletID: w.ID, Amount: decimal.New(40, 0), Currency: "USD", Ref: "op-1"}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, _ := s.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected balance 100 got %s", got.Balance)
	}
	exists, _ := s.ReferenceExists(ctx, "op-1")
	if exists {
		t.Fatal("rolled back reference must not be recorded")
	}

	// The reference stays usable.
	tx2, _ := s.Begin(ctx)
	if _, _, err := s.Debit(ctx, tx2, DebitInput{WalletID: w.ID, Amount: decimal.New(40, 0), Currency: "USD", Ref: "op-1"}); err != nil {
		t.Fatalf("debit after rollback: %v", err)
	}
	if err := tx2.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "100")

	tx, _ := s.Begin(ctx)
	if _, _, err := s.Credit(ctx, tx, CreditInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: "op-1"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}

	got, _ := s.GetWallet(ctx, w.ID)
	if !got.Balance.Equal(decimal.RequireFromString("101")) {
		t.Fatalf("expected committed balance 101 got %s", got.Balance)
	}
}

func TestGetOrCreateHoldingWalletConcurrentFirstAccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ids := make([]string, 8)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w, err := s.GetOrCreateHoldingWallet(ctx, "USD")
			if err != nil {
				t.Errorf("holding wallet: %v", err)
				return
			}
			ids[i] = w.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected a single holding wallet, got %s and %s", ids[0], id)
		}
	}

	w, err := s.GetWalletByOwnerCurrency(ctx, "house", "USD")
	if err != nil {
		t.Fatalf("lookup holding wallet: %v", err)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero starting balance got %s", w.Balance)
	}
}

func TestCreateWalletDuplicateOwnerCurrency(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mustWallet(t, s, "user-1", "USD", "")

	if _, err := s.CreateWallet(ctx, "user-1", "USD"); !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists got %v", err)
	}
	if _, err := s.CreateWallet(ctx, "user-1", "EUR"); err != nil {
		t.Fatalf("different currency should succeed: %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	w := mustWallet(t, s, "user-1", "USD", "0")

	for i := 0; i < 5; i++ {
		tx, _ := s.Begin(ctx)
		ref := string(rune('a' + i))
		if _, _, err := s.Credit(ctx, tx, CreditInput{WalletID: w.ID, Amount: decimal.New(1, 0), Currency: "USD", Ref: ref}); err != nil {
			t.Fatalf("credit %s: %v", ref, err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("commit %s: %v", ref, err)
		}
	}

	first, err := s.History(ctx, w.ID, 1, 2)
	if err != nil {
		t.Fatalf("history page 1: %v", err)
	}
	if len(first) != 2 || first[0].Reference != "e-CREDIT" || first[1].Reference != "d-CREDIT" {
		t.Fatalf("unexpected first page: %+v", first)
	}

	third, err := s.History(ctx, w.ID, 3, 2)
	if err != nil {
		t.Fatalf("history page 3: %v", err)
	}
	if len(third) != 1 || third[0].Reference != "a-CREDIT" {
		t.Fatalf("unexpected last page: %+v", third)
	}

	if _, err := s.History(ctx, "missing", 1, 2); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected ErrWalletNotFound got %v", err)
	}
}
