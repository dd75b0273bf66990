// Package retry re-runs operations that failed on transient storage
// conflicts. Operations handed to it must be safe to re-run in full; the
// wallet store's reference-uniqueness guarantee is what makes that hold.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nile-pay/nile_pay/internal/wallet"
)

// ErrExhausted indicates the operation kept hitting transient conflicts until
// no attempts remained.
var ErrExhausted = errors.New("operation failed after exhausting retry attempts")

const (
	// DefaultMaxAttempts bounds how often a conflicting operation is re-run.
	DefaultMaxAttempts = 3
	// DefaultDelay is the fixed pause between attempts.
	DefaultDelay = 100 * time.Millisecond
)

// WithRetry invokes op, re-running it only when it fails with
// wallet.ErrTransientConflict. Any other failure propagates immediately.
func WithRetry[T any](ctx context.Context, op func(context.Context) (T, error), maxAttempts int, delay time.Duration) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, wallet.ErrTransientConflict) {
			return zero, err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%w (%d attempts): %v", ErrExhausted, maxAttempts, lastErr)
}
