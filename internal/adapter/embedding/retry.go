package embedding

import (
	"context"
	"fmt"
	"time"
)

// WithRetry runs fn up to attempts times, sleeping with exponential
// backoff between failures (base, 2·base, 4·base, ...). It is the
// explicit retry policy for model initialization and other
// network-backed calls: a small fixed attempt count, never unbounded.
func WithRetry(ctx context.Context, attempts int, base time.Duration, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
