// Package resilience provides a circuit breaker for the engine's outbound
// service calls. A tripped breaker makes a dead upstream fail fast, which is
// what lets a chat turn degrade into its visible error reply (and a feedback
// submission into a pending log entry) without waiting out a full timeout.
package resilience

import (
	"errors"
	"sync"
	"time"

	"chat-widget-demo/engine/pkg/logger"
)

// State of the breaker
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// ErrOpen is returned when the breaker short-circuits a call
var ErrOpen = errors.New("circuit open")

// Config tunes a breaker
type Config struct {
	Name             string
	FailureThreshold uint
	SuccessThreshold uint
	RetryTimeout     time.Duration
}

// DefaultConfig returns sane defaults for an HTTP collaborator
func DefaultConfig(name string) Config {
	return Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RetryTimeout:     30 * time.Second,
	}
}

// CircuitBreaker trips open after consecutive failures and probes the
// upstream again after the retry timeout.
type CircuitBreaker struct {
	name             string
	failureThreshold uint
	successThreshold uint
	retryTimeout     time.Duration
	log              *logger.Logger
	now              func() time.Time

	mu          sync.Mutex
	state       State
	failures    uint
	successes   uint
	nextAttempt time.Time
}

// New creates a closed breaker
func New(cfg Config, log *logger.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		name:             cfg.Name,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		retryTimeout:     cfg.RetryTimeout,
		log:              log,
		now:              time.Now,
		state:            StateClosed,
	}
}

// SetClock overrides the time source (testing)
func (cb *CircuitBreaker) SetClock(now func() time.Time) {
	cb.now = now
}

// Execute runs fn unless the breaker is open, recording the outcome
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		cb.log.Warn("circuit breaker short-circuited request", "name", cb.name)
		return ErrOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// State returns the breaker's current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().After(cb.nextAttempt) {
			cb.state = StateHalfOpen
			cb.successes = 0
			cb.log.Info("circuit breaker probing upstream", "name", cb.name)
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successes < cb.successThreshold
	}
	return false
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.log.Info("circuit breaker closed", "name", cb.name)
		}
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.trip()
		}
	case StateHalfOpen:
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = StateOpen
	cb.nextAttempt = cb.now().Add(cb.retryTimeout)
	cb.log.Warn("circuit breaker opened",
		"name", cb.name,
		"failures", cb.failures,
		"retry_at", cb.nextAttempt.Format(time.RFC3339),
	)
}
