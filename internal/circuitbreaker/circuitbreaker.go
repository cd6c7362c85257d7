// Package circuitbreaker keeps per-provider health so that a shared transport
// can fail fast while the provider is unavailable.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned by transports when the breaker rejects a request.
var ErrOpen = errors.New("circuitbreaker: provider circuit is open")

// State represents the state of the circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

const (
	defaultFailureThreshold = 3
	defaultResetTimeout     = 30 * time.Second
)

// Config tunes the breaker. Zero values select the defaults.
type Config struct {
	FailureThreshold int           // Consecutive failures that open the circuit
	ResetTimeout     time.Duration // Time spent Open before a trial request is allowed
}

type providerState struct {
	state               State
	consecutiveFailures int
	openUntil           time.Time
}

// CircuitBreaker is an in-memory breaker keyed by provider name.
type CircuitBreaker struct {
	mu        sync.Mutex
	providers map[string]*providerState
	cfg       Config
}

// NewCircuitBreaker creates a breaker, filling unset Config fields with defaults.
func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	return &CircuitBreaker{
		providers: make(map[string]*providerState),
		cfg:       cfg,
	}
}

// getProviderState must be called with mu held.
func (cb *CircuitBreaker) getProviderState(provider string) *providerState {
	ps, ok := cb.providers[provider]
	if !ok {
		ps = &providerState{state: StateClosed}
		cb.providers[provider] = ps
	}
	return ps
}

// AllowRequest reports whether a request to provider may proceed.
// An Open circuit whose reset timeout elapsed moves to HalfOpen and lets the request through.
func (cb *CircuitBreaker) AllowRequest(provider string) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ps := cb.getProviderState(provider)
	switch ps.state {
	case StateOpen:
		if time.Now().Before(ps.openUntil) {
			return false
		}
		ps.state = StateHalfOpen
		ps.consecutiveFailures = 0
		return true
	default:
		return true
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ps := cb.getProviderState(provider)
	switch ps.state {
	case StateClosed:
		ps.consecutiveFailures++
		if ps.consecutiveFailures >= cb.cfg.FailureThreshold {
			ps.state = StateOpen
			ps.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
		}
	case StateHalfOpen:
		// the trial request failed: reopen for a full timeout
		ps.state = StateOpen
		ps.consecutiveFailures = cb.cfg.FailureThreshold
		ps.openUntil = time.Now().Add(cb.cfg.ResetTimeout)
	case StateOpen:
	}
}

// RecordSuccess records a successful call. A success while HalfOpen closes the circuit.
func (cb *CircuitBreaker) RecordSuccess(provider string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ps := cb.getProviderState(provider)
	switch ps.state {
	case StateClosed, StateHalfOpen:
		ps.state = StateClosed
		ps.consecutiveFailures = 0
	case StateOpen:
	}
}

// GetProviderStatus returns the state and consecutive failure count without transitioning.
func (cb *CircuitBreaker) GetProviderStatus(provider string) (State, int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	ps := cb.getProviderState(provider)
	return ps.state, ps.consecutiveFailures
}
