package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks failures.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen allows a single probe to determine recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker implements a simple failure-ratio circuit breaker guarding one
// upstream target. The zero value is not usable; construct with NewBreaker.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	successes    int
	minRequests  int
	failureRatio float64
	openedAt     time.Time
	openFor      time.Duration
	now          func() time.Time

	// OnStateChange, when set, observes every transition. Used to export the
	// breaker state as a gauge.
	OnStateChange func(State)
}

// NewBreaker constructs a breaker that opens once the failure ratio exceeds
// the threshold after minRequests observations, and stays open for openFor.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		now:          time.Now,
	}
}

// Allow reports whether a request may proceed. In the open state it starts a
// single half-open probe once the cool-off period expired.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.transition(HalfOpen)
		return true
	case HalfOpen:
		// Only the probe that triggered the transition is in flight.
		return false
	default:
		return true
	}
}

// MarkSuccess records a successful request.
func (b *Breaker) MarkSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.reset()
		b.transition(Closed)
		return
	}
	b.successes++
	b.maybeTrim()
}

// MarkFailure records a failed request and opens the breaker when the rolling
// failure ratio crosses the threshold.
func (b *Breaker) MarkFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.openedAt = b.now()
		b.transition(Open)
		return
	}
	b.failures++
	total := b.failures + b.successes
	if total < b.minRequests {
		return
	}
	if float64(b.failures)/float64(total) >= b.failureRatio {
		b.reset()
		b.openedAt = b.now()
		b.transition(Open)
	}
	b.maybeTrim()
}

// CurrentState returns the state at the time of the call.
func (b *Breaker) CurrentState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) reset() {
	b.failures = 0
	b.successes = 0
}

// maybeTrim halves the counters so old observations age out of the ratio.
func (b *Breaker) maybeTrim() {
	if b.failures+b.successes > 4*b.minRequests {
		b.failures /= 2
		b.successes /= 2
	}
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	b.state = next
	if b.OnStateChange != nil {
		b.OnStateChange(next)
	}
}
