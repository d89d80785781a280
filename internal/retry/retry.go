// Package retry implements the bounded retry policy shared by all job-search
// provider adapters. Backoff doubles each attempt (10s, 20s, 40s for the
// provider policy) with optional jitter, capped at MaxDelay.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// retryableError marks an error as worth retrying.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// MarkRetryable wraps err so Policy.Do will retry it. Nil passes through.
func MarkRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// Retryable reports whether err was marked with MarkRetryable.
func Retryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Policy is a reusable retry configuration. The zero value performs a single
// attempt with no waiting.
type Policy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // wait before the second attempt; doubles after
	MaxDelay    time.Duration // cap on a single wait; 0 means uncapped
	Jitter      time.Duration // uniform random extra wait in [0, Jitter)

	// sleep is replaceable in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op, retrying on errors marked Retryable until MaxAttempts is
// exhausted or ctx is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op(ctx)
		if err == nil || !Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if werr := sleep(ctx, p.delay(attempt)); werr != nil {
			return werr
		}
	}
	return err
}

// delay computes the wait after the given (1-based) failed attempt:
// BaseDelay << (attempt-1), capped at MaxDelay, plus jitter.
func (p Policy) delay(attempt int) time.Duration {
	d := p.BaseDelay * time.Duration(1<<(attempt-1))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int64N(int64(p.Jitter)))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
