// Package resilience implements the circuit breaker, retry-with-jitter,
// cost tracker, and dead-letter queue (spec §4.10) that wrap every
// outbound LLM/graph call.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call when the breaker is OPEN and fails
// fast (§4.10: "Calls while OPEN fail fast with a distinct error").
var ErrCircuitOpen = errors.New("resilience: circuit breaker open")

// State is one of the three circuit breaker states (§4.10).
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker guards one external provider. All state transitions are
// mutex-guarded and safe under parallel access (§4.10).
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration
	halfOpenMaxCalls int

	state             State
	consecutiveFails  int
	openedAt          time.Time
	halfOpenInFlight  int
	halfOpenSuccesses int
}

// NewCircuitBreaker constructs one breaker instance; callers keep one per
// external provider (§4.10: "one instance per external provider").
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration, halfOpenMaxCalls int) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		halfOpenMaxCalls: halfOpenMaxCalls,
		state:            StateClosed,
	}
}

func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// allow decides whether a call may proceed, transitioning OPEN->HALF_OPEN
// when the recovery timeout has elapsed.
func (b *CircuitBreaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.recoveryTimeout {
			b.state = StateHalfOpen
			b.halfOpenInFlight = 0
			b.halfOpenSuccesses = 0
		} else {
			return false
		}
		fallthrough
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.halfOpenMaxCalls {
			return false
		}
		b.halfOpenInFlight++
		return true
	default:
		return false
	}
}

func (b *CircuitBreaker) onResult(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		switch b.state {
		case StateClosed:
			b.consecutiveFails = 0
		case StateHalfOpen:
			b.halfOpenSuccesses++
			b.halfOpenInFlight--
			if b.halfOpenSuccesses >= b.halfOpenMaxCalls {
				b.state = StateClosed
				b.consecutiveFails = 0
			}
		}
		return
	}

	switch b.state {
	case StateClosed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.failureThreshold {
			b.state = StateOpen
			b.openedAt = time.Now()
		}
	case StateHalfOpen:
		b.halfOpenInFlight--
		b.state = StateOpen
		b.openedAt = time.Now()
	}
}

// Call invokes fn if the breaker permits it, recording the outcome.
// Returns ErrCircuitOpen without invoking fn when the breaker rejects the
// call (§8: "the next call must fail fast without invoking the wrapped
// function").
func (b *CircuitBreaker) Call(fn func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	b.onResult(err)
	return err
}
