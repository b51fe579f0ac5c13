package flightclient

import (
	"errors"
	"sync"
	"time"
)

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned by Allow while calls are short-circuited.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker is a closed/open/half-open circuit breaker. The classify func
// decides which errors count toward tripping it; business outcomes such as
// not-found must classify as false so they never open the circuit.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	classify  func(error) bool
	now       func() time.Time

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
}

func NewBreaker(threshold int, cooldown time.Duration, classify func(error) bool) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		classify:  classify,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. In the open state it fails fast
// until the cooldown elapses, then lets a single trial call through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrBreakerOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		return nil
	default: // StateHalfOpen
		if b.probing {
			return ErrBreakerOpen
		}
		b.probing = true
		return nil
	}
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(err error) {
	counted := err != nil && b.classify(err)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if counted {
			b.trip()
		} else {
			b.reset()
		}
		return
	}

	if !counted {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.trip()
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) trip() {
	b.state = StateOpen
	b.openedAt = b.now()
	b.failures = 0
}

func (b *Breaker) reset() {
	b.state = StateClosed
	b.failures = 0
}
