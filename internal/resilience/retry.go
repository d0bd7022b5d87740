package resilience

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable. Validation and programming errors
// should be wrapped so the retrier gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Retrier re-runs transient failures with exponential backoff. Permanent
// errors and open-breaker rejections are returned immediately; a fail-fast
// rejection never consumes a retry attempt.
type Retrier struct {
	MaxRetries int
	BaseDelay  time.Duration
	Jitter     bool
}

// NewRetrier creates a retrier with the given bounds.
func NewRetrier(maxRetries int, baseDelay time.Duration) *Retrier {
	return &Retrier{MaxRetries: maxRetries, BaseDelay: baseDelay, Jitter: true}
}

// Do runs op up to MaxRetries+1 times, sleeping BaseDelay*2^attempt between
// failures. Returns the last error after exhaustion.
func (r *Retrier) Do(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCircuitOpen) || IsPermanent(err) {
			return err
		}
		lastErr = err
		if attempt == r.MaxRetries {
			break
		}
		delay := r.BaseDelay << uint(attempt)
		if r.Jitter && delay > 0 {
			delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		}
		log.Printf("[WARN] attempt %d/%d failed: %v, retrying in %v", attempt+1, r.MaxRetries+1, err, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", r.MaxRetries+1, lastErr)
}
