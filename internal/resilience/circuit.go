// Package resilience provides the circuit breaker, retry, and error taxonomy
// shared by all enrichment providers.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is the circuit breaker state.
type State int

const (
	// StateClosed is the normal operating state — calls flow through.
	StateClosed State = iota
	// StateOpen rejects calls immediately until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits exactly one trial call to test recovery.
	StateHalfOpen
)

func (s State) String() string {
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

// ErrCircuitOpen is returned by Allow when a call is rejected without any
// network attempt.
var ErrCircuitOpen = eris.New("circuit breaker open")

// BreakerConfig controls one provider's circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit. Default: 5.
	FailureThreshold int

	// OpenTimeout is how long the circuit stays open before admitting a
	// half-open trial call. Default: 60s.
	OpenTimeout time.Duration

	// ShouldTrip decides whether an error counts toward the failure
	// threshold. If nil, every non-nil error counts.
	ShouldTrip func(err error) bool

	// OnStateChange is invoked on every state transition.
	OnStateChange func(from, to State)
}

// DefaultBreakerConfig returns the standard per-provider breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
	}
}

// Breaker is a per-provider circuit breaker. Each provider owns its own
// instance so one upstream outage cannot gate another provider's calls.
//
// Callers pair Allow with Record around the guarded operation: Allow gates
// the attempt (transitioning Open to HalfOpen once the timeout elapses) and
// Record feeds the outcome back into the state machine.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool // a half-open trial call is in flight

	now func() time.Time
}

// NewBreaker creates a circuit breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &Breaker{
		cfg:   cfg,
		state: StateClosed,
		now:   time.Now,
	}
}

// Allow reports whether a call may proceed. In the open state it returns
// ErrCircuitOpen until OpenTimeout has elapsed, then transitions to half-open
// and admits a single trial call; further calls are rejected until that
// trial's outcome is recorded.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

// Record feeds the outcome of an allowed call back into the state machine.
// A nil error (or one ShouldTrip rejects) resets the failure count; a
// counted failure increments it, opening the circuit at the threshold or
// reopening it from half-open.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trips := b.cfg.ShouldTrip
	if trips == nil {
		trips = func(e error) bool { return e != nil }
	}

	if b.state == StateHalfOpen {
		b.probing = false
	}

	if err == nil || !trips(err) {
		switch b.state {
		case StateHalfOpen:
			b.failures = 0
			b.transition(StateClosed)
		case StateClosed:
			b.failures = 0
		}
		return
	}

	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// State returns the current state, accounting for an elapsed open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Reset forces the breaker back to closed. Intended for tests and manual
// operator recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.state
	b.state = StateClosed
	b.failures = 0
	b.probing = false
	if old != StateClosed && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(old, StateClosed)
	}
}

// transition assumes b.mu is held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
