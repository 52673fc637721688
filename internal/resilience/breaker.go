package resilience

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the circuit breaker's three-state machine.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// ErrBreakerOpen is returned by Allow when the breaker is tripped and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: circuit breaker open")

// Breaker trips after a run of consecutive failures and stays open for
// a cooldown window before allowing a single probe attempt through.
// Used to mark the semantic index stale after repeated write failures.
type Breaker struct {
	mu sync.Mutex

	failureThreshold int
	cooldown         time.Duration

	state       BreakerState
	failures    int
	openedUntil time.Time
}

// NewBreaker opens the breaker after failureThreshold consecutive
// failures, keeping it open for cooldown before a half-open probe.
func NewBreaker(failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		state:            BreakerClosed,
	}
}

// Allow reports whether a call may proceed right now, transitioning
// open → half_open once the cooldown window has elapsed.
func (b *Breaker) Allow(now time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if now.Before(b.openedUntil) {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		return nil
	default:
		return nil
	}
}

// RecordSuccess closes the breaker and resets the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
}

// RecordFailure increments the failure count and trips the breaker once
// the threshold is reached, or immediately re-opens it from half_open.
func (b *Breaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.trip(now)
		return
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.trip(now)
	}
}

func (b *Breaker) trip(now time.Time) {
	b.state = BreakerOpen
	b.openedUntil = now.Add(b.cooldown)
	b.failures = 0
}

// State reports the breaker's current state without side effects.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stale reports whether the breaker is open, the signal callers use to
// fall back to lexical retrieval while the index is considered stale.
func (b *Breaker) Stale() bool {
	return b.State() == BreakerOpen
}
