// Package resilience wraps calls to external dependencies with a circuit
// breaker, per-attempt timeouts and exponential retry.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the dependency while its
// breaker is open.
var ErrCircuitOpen = errors.New("circuit open")

// State of a breaker
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a consecutive-failure circuit breaker. After threshold
// failures it opens; once cooldown has elapsed exactly one trial call is
// admitted, which closes the breaker on success or re-opens it on failure.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int
	threshold int
	cooldown  time.Duration
	openedAt  time.Time
	trial     bool
	now       func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, now: now}
}

// Allow admits a call or returns ErrCircuitOpen.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.trial = true
		return nil
	case StateHalfOpen:
		if b.trial {
			return ErrCircuitOpen
		}
		b.trial = true
		return nil
	}
	return nil
}

// Success records a healthy outcome.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.trial = false
}

// Failure records a failed outcome.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.open()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open()
	}
}

// Trip opens the breaker immediately regardless of the failure count.
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.open()
}

// Release gives back a half-open trial slot when the caller gave up
// before the dependency answered.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trial = false
}

func (b *Breaker) open() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.trial = false
}

// Snapshot returns the current state, failure count and open time.
func (b *Breaker) Snapshot() (State, int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// An open breaker past its cooldown reports half-open: the next call is a trial.
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen, b.failures, b.openedAt
	}
	return b.state, b.failures, b.openedAt
}

// State returns the current state.
func (b *Breaker) State() State {
	s, _, _ := b.Snapshot()
	return s
}
