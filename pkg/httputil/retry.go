// Package httputil holds the HTTP plumbing shared by mirror probing
// and mirror-list fetches: bounded retry with doubling backoff and the
// transient-error marker that drives it.
package httputil

import (
	"context"
	"errors"
	"time"
)

// RetryableError marks a failure as transient. Retry re-attempts only
// errors carrying this marker; everything else aborts immediately, so
// a 404 from a mirror is final while a connection reset is not.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Transient wraps err so Retry will re-attempt it.
func Transient(err error) error {
	return &RetryableError{Err: err}
}

// Retry runs fn up to attempts times, sleeping delay between tries and
// doubling it each round. It stops early on success, on a
// non-transient error, or when ctx is cancelled (returning ctx.Err()).
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.As(err, new(*RetryableError)) {
			return err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return lastErr
}
