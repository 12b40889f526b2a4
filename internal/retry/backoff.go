package retry

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ExponentialBackoff returns delay based on attempt number.
// The delay doubles with each attempt: base * 2^attempt
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	return base * (1 << attempt)
}

// StatusError carries an HTTP status so callers can decide whether to retry.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return e.Op + ": unexpected status " + http.StatusText(e.StatusCode)
}

// Retryable is true for 5xx and 429 responses.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable treats transport errors and retryable statuses as transient.
// Context cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return true
}

// Do runs op up to attempts times, sleeping with exponential backoff between
// transient failures. The last error is returned as-is.
func Do(ctx context.Context, attempts int, base time.Duration, op func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(ctx); err == nil || !IsRetryable(err) || attempt == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(ExponentialBackoff(attempt, base)):
		}
	}
	return err
}
