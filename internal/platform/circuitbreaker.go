// Package platform implements the upstream game-platform capability
// (spec.md §4's C1): entitlement validation and ticket creation against the
// platform API, behind a per-license circuit breaker and retry policy.
package platform

import (
	"sync"
	"time"
)

// CBState is a circuit breaker's state.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

// CircuitBreaker is a classic closed/open/half-open breaker, adapted from
// the teacher's provider-keyed breaker to be keyed by license instead.
type CircuitBreaker struct {
	mu sync.Mutex

	state               CBState
	failureThreshold    int
	resetTimeout        time.Duration
	halfOpenMax         int
	consecutiveFailures int
	halfOpenSuccesses   int
	lastFailureTime     time.Time
}

// NewCircuitBreaker constructs a breaker that opens after failureThreshold
// consecutive failures, waits resetTimeout before probing again, and
// requires halfOpenMax consecutive successes in the half-open state before
// closing.
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		halfOpenMax:      halfOpenMax,
	}
}

// Allow reports whether a call should be attempted right now.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CBClosed:
		return true
	case CBOpen:
		if time.Since(cb.lastFailureTime) >= cb.resetTimeout {
			cb.state = CBHalfOpen
			cb.halfOpenSuccesses = 0
			return true
		}
		return false
	default: // CBHalfOpen
		return true
	}
}

// RecordSuccess clears the failure streak and, in half-open, counts toward
// closing the breaker.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	if cb.state == CBHalfOpen {
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.halfOpenMax {
			cb.state = CBClosed
		}
	}
}

// RecordFailure counts a failure, tripping the breaker open if the
// consecutive-failure threshold is reached, or immediately if the failure
// happened while half-open.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CBClosed:
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.state = CBOpen
		}
	case CBHalfOpen:
		cb.state = CBOpen
		cb.halfOpenSuccesses = 0
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitBreakerRegistry lazily creates and caches one breaker per license.
// A single noisy server's upstream failures trip only that server's
// breaker, never another server's heartbeats (DESIGN.md).
type CircuitBreakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	failureThreshold int
	resetTimeout     time.Duration
	halfOpenMax      int
}

// NewCircuitBreakerRegistry constructs a registry whose breakers all share
// the same thresholds.
func NewCircuitBreakerRegistry(failureThreshold int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers:         make(map[string]*CircuitBreaker),
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		halfOpenMax:      halfOpenMax,
	}
}

// Get returns the breaker for key, creating it on first use.
func (r *CircuitBreakerRegistry) Get(key string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(r.failureThreshold, r.resetTimeout, r.halfOpenMax)
		r.breakers[key] = cb
	}
	return cb
}
