package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nile-pay/nile_pay/internal/wallet"
)

func TestWithRetryRecoversFromTransientConflict(t *testing.T) {
	attempts := 0
	out, err := WithRetry(context.Background(), func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", fmt.Errorf("write conflict: %w", wallet.ErrTransientConflict)
		}
		return "done", nil
	}, 3, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" {
		t.Fatalf("expected done got %q", out)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts got %d", attempts)
	}
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		attempts++
		return 0, wallet.ErrInsufficientFunds
	}, 3, time.Millisecond)
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt got %d", attempts)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		attempts++
		return 0, wallet.ErrTransientConflict
	}, 3, time.Millisecond)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts got %d", attempts)
	}
}

func TestWithRetryStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	_, err := WithRetry(ctx, func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, wallet.ErrTransientConflict
	}, 5, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt got %d", attempts)
	}
}

func TestWithRetryNormalizesAttempts(t *testing.T) {
	attempts := 0
	out, err := WithRetry(context.Background(), func(context.Context) (int, error) {
		attempts++
		return 42, nil
	}, 0, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != 42 || attempts != 1 {
		t.Fatalf("expected one successful attempt, got out=%d attempts=%d", out, attempts)
	}
}
