package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network timeouts, 5xx responses) with this type
// so that [Backoff.Do] attempts the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is marked with [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Backoff describes a bounded exponential retry schedule.
type Backoff struct {
	Attempts int           // Total attempts including the first (min 1)
	Delay    time.Duration // Wait before the second attempt
	MaxDelay time.Duration // Upper bound for a single wait (0 = unbounded)
}

// Do runs fn according to the schedule. It stops at the first success, the
// first non-retryable error, or when ctx is done.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Delay
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
				if b.MaxDelay > 0 && delay > b.MaxDelay {
					delay = b.MaxDelay
				}
			}
		}
	}
	return lastErr
}
