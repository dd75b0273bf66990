package directory

import (
	"context"
	"errors"
	"testing"
)

func TestProvisionAndResolve(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()

	account, err := dir.Provision(ctx, "user-1")
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	if len(account.AccountNumber) != 10 {
		t.Fatalf("expected a 10-digit account number, got %q", account.AccountNumber)
	}
	if account.UserID != "user-1" {
		t.Fatalf("expected owner user-1 got %q", account.UserID)
	}

	resolved, err := dir.Resolve(ctx, account.AccountNumber)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.UserID != "user-1" {
		t.Fatalf("resolved wrong owner %q", resolved.UserID)
	}
}

func TestResolveUnknownAccount(t *testing.T) {
	dir := NewMemory()
	if _, err := dir.Resolve(context.Background(), "0000000000"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound got %v", err)
	}
}

func TestProvisionMintsDistinctNumbers(t *testing.T) {
	ctx := context.Background()
	dir := NewMemory()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		account, err := dir.Provision(ctx, "user-1")
		if err != nil {
			t.Fatalf("provision %d: %v", i, err)
		}
		if _, dup := seen[account.AccountNumber]; dup {
			t.Fatalf("duplicate account number %s", account.AccountNumber)
		}
		seen[account.AccountNumber] = struct{}{}
	}
}
