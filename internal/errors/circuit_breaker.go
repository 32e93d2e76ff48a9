package errors

import (
	"errors"
	"sync"
	"time"

	"github.com/Proton-105/funnel-bot/pkg/metrics"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrProbeLimit  = errors.New("circuit breaker probe limit reached")
)

// BreakerSettings tunes a CircuitBreaker. Zero fields take DefaultBreaker values.
type BreakerSettings struct {
	// MinRequests is the window size before the failure ratio is judged.
	MinRequests int
	// FailureRatio opens the breaker once reached within a window.
	FailureRatio float64
	// Cooldown is how long an open breaker rejects calls.
	Cooldown time.Duration
	// Probes is the number of trial calls let through while half open.
	Probes int
}

var DefaultBreaker = BreakerSettings{
	MinRequests:  10,
	FailureRatio: 0.5,
	Cooldown:     30 * time.Second,
	Probes:       3,
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MinRequests <= 0 {
		s.MinRequests = DefaultBreaker.MinRequests
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = DefaultBreaker.FailureRatio
	}
	if s.Cooldown <= 0 {
		s.Cooldown = DefaultBreaker.Cooldown
	}
	if s.Probes <= 0 {
		s.Probes = DefaultBreaker.Probes
	}
	return s
}

// CircuitBreaker guards one remote dependency. While open it fails fast with
// ErrCircuitOpen; after the cooldown a limited number of probes decide
// whether to close again.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	openedAt time.Time
	calls    int
	failures int
	inFlight int
	passed   int
}

// NewCircuitBreaker returns a closed breaker publishing its state under name.
func NewCircuitBreaker(name string, settings BreakerSettings) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:     name,
		settings: settings.withDefaults(),
		now:      time.Now,
	}
	metrics.SetBreakerState(name, int(StateClosed))
	return cb
}

// Call runs fn unless the breaker rejects it and feeds the outcome back.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.report(err == nil)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.Cooldown {
			return ErrCircuitOpen
		}
		cb.setLocked(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if cb.inFlight+cb.passed >= cb.settings.Probes {
			return ErrProbeLimit
		}
		cb.inFlight++
	}
	return nil
}

func (cb *CircuitBreaker) report(ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen {
		cb.inFlight = max(cb.inFlight-1, 0)
		if !ok {
			cb.setLocked(StateOpen)
			return
		}
		cb.passed++
		if cb.passed >= cb.settings.Probes {
			cb.setLocked(StateClosed)
		}
		return
	}

	if cb.state != StateClosed {
		return
	}

	cb.calls++
	if !ok {
		cb.failures++
	}
	if cb.calls < cb.settings.MinRequests {
		return
	}
	if float64(cb.failures)/float64(cb.calls) >= cb.settings.FailureRatio {
		cb.setLocked(StateOpen)
		return
	}
	cb.calls, cb.failures = 0, 0
}

func (cb *CircuitBreaker) setLocked(next State) {
	if next == StateOpen {
		cb.openedAt = cb.now()
	}
	cb.state = next
	cb.calls, cb.failures, cb.inFlight, cb.passed = 0, 0, 0, 0
	metrics.SetBreakerState(cb.name, int(next))
}
