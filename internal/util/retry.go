package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryAfter is implemented by errors that know how long the remote side
// asked us to wait, such as a Discord 429 with a Retry-After header.
type RetryAfter interface {
	RetryAfter() time.Duration
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// RetryWithBackoff calls fn up to maxRetries+1 times, doubling the wait from
// base after each failure. A RetryAfter hint replaces the computed wait, and a
// Permanent error stops immediately. If the context is cancelled,
// RetryWithBackoff returns the context error.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}

		var perm permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}

		if attempt == maxRetries {
			break
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := base << attempt
		var hint RetryAfter
		if errors.As(lastErr, &hint) && hint.RetryAfter() > 0 {
			wait = hint.RetryAfter()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}
