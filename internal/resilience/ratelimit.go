package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outbound provider calls by a minimum interval. The first
// Acquire never delays. One limiter per fetcher instance; there is no
// cross-instance fairness.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	next        time.Time
}

// NewRateLimiter creates a limiter allowing at most maxPerMinute grants.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	return &RateLimiter{minInterval: time.Minute / time.Duration(maxPerMinute)}
}

// NewRateLimiterInterval creates a limiter with an explicit minimum interval.
func NewRateLimiterInterval(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval}
}

// Acquire blocks until the caller's slot arrives, or until ctx is done.
// Every grant pushes the next slot out by the minimum interval.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if l.next.After(now) {
		wait = l.next.Sub(now)
		l.next = l.next.Add(l.minInterval)
	} else {
		l.next = now.Add(l.minInterval)
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MinInterval returns the configured spacing between grants.
func (l *RateLimiter) MinInterval() time.Duration {
	return l.minInterval
}
