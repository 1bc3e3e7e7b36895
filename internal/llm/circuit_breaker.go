package llm

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the provider while a model's
// breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker keeps one breaker per model. It never retries; it only
// fails fast after repeated provider errors.
type CircuitBreaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	breakers map[string]*breaker
	mu       sync.Mutex
}

type breaker struct {
	failures    uint32
	successes   uint32
	lastFailure time.Time
	state       BreakerState
	mu          sync.Mutex
}

// BreakerState represents the circuit breaker state
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
		return "half-open"
	default:
		return "closed"
	}
}

// NewCircuitBreaker creates a breaker set that opens after failureThreshold
// consecutive failures and probes again after timeout
func NewCircuitBreaker(failureThreshold uint32, timeout time.Duration) *CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: 2,
		timeout:          timeout,
		breakers:         make(map[string]*breaker),
	}
}

// Execute runs fn unless the breaker for key is open
func (cb *CircuitBreaker) Execute(key string, fn func() error) error {
	b := cb.get(key)

	if b.currentState(cb.timeout) == StateOpen {
		breakerRejections.WithLabelValues(key).Inc()
		return fmt.Errorf("%w for %s", ErrCircuitOpen, key)
	}

	err := fn()
	if err != nil {
		b.recordFailure(cb.failureThreshold)
	} else {
		b.recordSuccess(cb.successThreshold)
	}
	return err
}

// State returns the state of the breaker for key
func (cb *CircuitBreaker) State(key string) BreakerState {
	return cb.get(key).currentState(cb.timeout)
}

func (cb *CircuitBreaker) get(key string) *breaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	b, ok := cb.breakers[key]
	if !ok {
		b = &breaker{state: StateClosed}
		cb.breakers[key] = b
	}
	return b
}

func (b *breaker) currentState(timeout time.Duration) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailure) > timeout {
		b.state = StateHalfOpen
		b.failures = 0
		b.successes = 0
	}
	return b.state
}

func (b *breaker) recordFailure(threshold uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= threshold {
			b.state = StateOpen
		}
	case StateHalfOpen:
		b.state = StateOpen
	}
}

func (b *breaker) recordSuccess(threshold uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes++

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		if b.successes >= threshold {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
		}
	}
}
