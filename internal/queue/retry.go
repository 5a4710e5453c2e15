package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Backoff controls ConnectWithRetry.
type Backoff struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultBackoff rides out a broker that starts alongside the server.
var DefaultBackoff = Backoff{MaxRetries: 10, InitialDelay: 2 * time.Second, MaxDelay: 30 * time.Second}

// delay returns the wait after the given zero-based failed attempt.
func (b Backoff) delay(attempt int) time.Duration {
	d := b.InitialDelay
	for i := 0; i < attempt && d < b.MaxDelay; i++ {
		d *= 2
	}
	if d > b.MaxDelay {
		d = b.MaxDelay
	}
	return d
}

// ConnectWithRetry calls connect until it succeeds, retrying with capped
// exponential backoff. It gives up after b.MaxRetries attempts or when ctx ends.
func ConnectWithRetry[T any](ctx context.Context, b Backoff, log *zap.Logger, connect func() (T, error)) (T, error) {
	var zero T
	if log == nil {
		log = zap.NewNop()
	}
	if b.MaxRetries <= 0 {
		b.MaxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < b.MaxRetries; attempt++ {
		v, err := connect()
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == b.MaxRetries-1 {
			break
		}

		delay := b.delay(attempt)
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", b.MaxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", b.MaxRetries, lastErr)
}
