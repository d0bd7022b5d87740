package resilience

import (
	"errors"
	"log"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without invoking
// the wrapped operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the circuit breaker's current mode.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker trips after a run of consecutive failures and fails fast
// during the cool-down. After cool-down exactly one trial call is let through;
// its outcome closes or reopens the circuit. A cancelled call counts as a
// failure, so a half-open trial can never leave the breaker stuck.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         BreakerState
	failures      int
	threshold     int
	coolDown      time.Duration
	openedAt      time.Time
	trialInFlight bool

	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(failureThreshold int, coolDown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	return &CircuitBreaker{
		state:     StateClosed,
		threshold: failureThreshold,
		coolDown:  coolDown,
		now:       time.Now,
	}
}

// Execute runs op under breaker supervision. In the open state before
// cool-down it returns ErrCircuitOpen without invoking op.
func (cb *CircuitBreaker) Execute(op func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := op()
	cb.record(err == nil)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.coolDown {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.trialInFlight = true
		log.Printf("[INFO] circuit breaker half-open, allowing trial call")
		return nil
	case StateHalfOpen:
		if cb.trialInFlight {
			return ErrCircuitOpen
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.trialInFlight = false
		if success {
			cb.state = StateClosed
			cb.failures = 0
			log.Printf("[INFO] circuit breaker closed after successful trial")
		} else {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			log.Printf("[WARN] circuit breaker reopened after failed trial")
		}
		return
	}

	if success {
		cb.failures = 0
		return
	}
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		log.Printf("[WARN] circuit breaker opened after %d consecutive failures", cb.failures)
	}
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive-failure counter.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
