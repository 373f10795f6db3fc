package llm

import (
	"context"
	"sync"
	"time"

	"github.com/Antonio-Ardigo/Remote-Project/internal/ports"
)

// BreakerState is the state of a CircuitBreaker.
type BreakerState int

// Breaker states.
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
	}
	return "closed"
}

// CircuitBreaker stops calling a provider after maxFailures consecutive
// failures and lets a single trial call through once the cooldown has passed.
// Calls are not serialized; only state transitions take the lock.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	probing     bool
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures: max(maxFailures, 1),
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current state, moving from open to half-open when the
// cooldown has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cooldown {
		cb.state = StateHalfOpen
		cb.probing = false
	}
}

// allow reports whether a call may proceed.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	switch cb.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
	}
	return true
}

// record updates the breaker with the outcome of an allowed call. Failures
// that say nothing about provider health, such as a bad request, count as
// successes.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !IsRetryable(err) {
		cb.failures = 0
		cb.state = StateClosed
		cb.probing = false
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.probing = false
	}
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}
	err := fn()
	cb.record(err)
	return err
}

// CircuitBreakerMiddleware guards a provider with a breaker of its own.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration) Middleware {
	return func(next CoreLLM) CoreLLM {
		cb := NewCircuitBreaker(maxFailures, cooldown)
		return wrap(next, func(ctx context.Context, prompt ports.Prompt) (ports.Completion, error) {
			var out ports.Completion
			err := cb.Call(func() error {
				var err error
				out, err = next.DoRequest(ctx, prompt)
				return err
			})
			return out, err
		})
	}
}
