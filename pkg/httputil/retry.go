package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a transient failure worth retrying: a refused
// connection, a 429 or a 5xx response.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is or wraps a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Retry calls fn at most attempts times, pausing delay before the first
// retry and doubling the pause after each one. Only a RetryableError is
// retried. When every attempt fails the last error is returned; a
// cancelled ctx during a pause returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for n := 0; n < max(attempts, 1); n++ {
		if n > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
