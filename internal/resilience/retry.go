// Package resilience provides the bounded retry policy used for memory-store
// writes.
//
// Retries exist only for writes: read-side failures in the benchmark are
// handled fail-open at their own boundaries (see internal/retrieval and
// internal/answer) and must never delay or abort a run.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig bounds a retried operation.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first. Values < 1
	// are treated as 1.
	Attempts int

	// Backoff is the fixed delay between consecutive attempts.
	Backoff time.Duration
}

// DefaultRetry mirrors the store-write policy: three attempts, one second apart.
var DefaultRetry = RetryConfig{Attempts: 3, Backoff: time.Second}

// Retry runs fn up to cfg.Attempts times, sleeping cfg.Backoff between
// attempts. It returns nil on the first success, the last error once attempts
// are exhausted, or ctx.Err() if the context is cancelled while waiting.
// Intermediate failures are logged at debug level with the operation name.
func Retry(ctx context.Context, cfg RetryConfig, op string, fn func(ctx context.Context) error) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if i < attempts-1 {
			slog.Debug("operation failed, retrying",
				"op", op, "attempt", i+1, "attempts", attempts, "error", lastErr)
			select {
			case <-time.After(cfg.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("%s: %d attempts exhausted: %w", op, attempts, lastErr)
}
