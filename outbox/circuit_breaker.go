package outbox

import (
	"sync"
	"time"
)

// CircuitState is one of the three states spec.md §4.5 step 1 names.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// failureThresholdToOpen is the number of consecutive failed row sends
// that opens the breaker, per spec.md §4.5 step 6.
const failureThresholdToOpen = 5

// CircuitBreaker gates poller ticks, adapted from the reference stack's
// per-model breaker (internal/adapter/ai/circuit_breaker.go) but
// re-scoped here to poller-tick gating: Allow replaces ShouldAttempt,
// and the open→half-open transition is driven by a caller-supplied
// openDuration rather than a fixed constant.
type CircuitBreaker struct {
	openDuration time.Duration

	mu              sync.Mutex
	state           CircuitState
	consecutiveFail int
	openedAt        time.Time
}

// NewCircuitBreaker constructs a breaker that opens after five
// consecutive failed sends and probes recovery after openDuration
// (default 60s per spec.md §4.5 step 1).
func NewCircuitBreaker(openDuration time.Duration) *CircuitBreaker {
	if openDuration <= 0 {
		openDuration = 60 * time.Second
	}
	return &CircuitBreaker{openDuration: openDuration, state: CircuitClosed}
}

// Allow reports whether a tick should proceed, transitioning OPEN to
// HALF-OPEN once openDuration has elapsed since it opened.
func (cb *CircuitBreaker) Allow(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed, CircuitHalfOpen:
		return true
	case CircuitOpen:
		if now.Sub(cb.openedAt) >= cb.openDuration {
			cb.state = CircuitHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess closes the breaker (from OPEN or HALF-OPEN) and resets
// the consecutive-failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail = 0
	cb.state = CircuitClosed
}

// RecordFailure increments the consecutive-failure counter, opening the
// breaker once it reaches failureThresholdToOpen.
func (cb *CircuitBreaker) RecordFailure(now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFail++
	if cb.consecutiveFail >= failureThresholdToOpen {
		cb.state = CircuitOpen
		cb.openedAt = now
	}
}

// State returns the current state, primarily for metrics/tests.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
