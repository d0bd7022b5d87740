package resilience

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiter_FirstAcquireImmediate(t *testing.T) {
	l := NewRateLimiterInterval(100 * time.Millisecond)

	start := time.Now()
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Errorf("first acquire should not delay, took %v", elapsed)
	}
}

func TestRateLimiter_SpacesConsecutiveAcquires(t *testing.T) {
	interval := 50 * time.Millisecond
	l := NewRateLimiterInterval(interval)

	ctx := context.Background()
	var grants []time.Time
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		grants = append(grants, time.Now())
	}
	for i := 1; i < len(grants); i++ {
		if gap := grants[i].Sub(grants[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("grants %d and %d only %v apart, want >= %v", i-1, i, gap, interval)
		}
	}
}

func TestRateLimiter_AcquireCancellable(t *testing.T) {
	l := NewRateLimiterInterval(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx); err == nil {
		t.Fatal("expected context deadline error while waiting for slot")
	}
}

func TestRateLimiter_PerMinuteInterval(t *testing.T) {
	l := NewRateLimiter(30)
	if got := l.MinInterval(); got != 2*time.Second {
		t.Errorf("30 req/min should space by 2s, got %v", got)
	}
}
