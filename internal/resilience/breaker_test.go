package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: expected boom, got %v", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", cb.State())
	}

	invoked := false
	err := cb.Execute(func() error { invoked = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if invoked {
		t.Error("operation must not run while the breaker is open")
	}
}

func TestBreaker_SuccessResetsCounter(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return errBoom })
	cb.Execute(func() error { return nil })
	if cb.Failures() != 0 {
		t.Fatalf("expected counter reset, got %d", cb.Failures())
	}
	cb.Execute(func() error { return errBoom })
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after non-consecutive failures, got %s", cb.State())
	}
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	// Before cool-down: fail fast.
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen before cool-down, got %v", err)
	}

	// After cool-down: exactly one trial runs, success closes.
	now = now.Add(2 * time.Minute)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("trial call should run and succeed, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after trial success, got %s", cb.State())
	}
}

func TestBreaker_TrialFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)
	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("expected trial to run and fail, got %v", err)
	}
	if cb.State() != StateOpen {
		t.Fatalf("expected reopened after trial failure, got %s", cb.State())
	}

	// Cool-down restarts from the reopen.
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen during renewed cool-down, got %v", err)
	}
}

func TestBreaker_SingleHalfOpenProbe(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	now := time.Now()
	cb.now = func() time.Time { return now }

	cb.Execute(func() error { return errBoom })
	now = now.Add(2 * time.Minute)

	// Simulate a slow in-flight trial: allow transitions to half-open, then a
	// second caller must be rejected until the trial reports.
	if err := cb.allow(); err != nil {
		t.Fatalf("first probe should be allowed: %v", err)
	}
	if err := cb.allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second concurrent probe should be rejected, got %v", err)
	}
	cb.record(false) // e.g. the trial was cancelled; must not wedge half-open
	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open after failed trial, got %v", err)
	}
}
