package assessment

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the provider is considered down.
var ErrCircuitOpen = errors.New("assessment circuit breaker is open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker stops calling a failing provider for a while so submissions fail
// fast into a degraded report instead of each waiting for a timeout.
// After resetTimeout a single probe call is let through.
type breaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time

	mu          sync.Mutex
	state       breakerState
	failures    int
	openedAt    time.Time
	probeActive bool
}

func newBreaker(name string, maxFailures int, resetTimeout time.Duration) *breaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &breaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Execute runs fn unless the breaker is open.
func (b *breaker) Execute(fn func() error) error {
	b.mu.Lock()
	probe := false
	switch b.state {
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = stateHalfOpen
		slog.Info("circuit breaker half-open", "name", b.name)
		fallthrough
	case stateHalfOpen:
		if b.probeActive {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.probeActive = true
		probe = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probeActive = false
	}
	if err == nil {
		if b.state != stateClosed {
			slog.Info("circuit breaker closed", "name", b.name)
		}
		b.state = stateClosed
		b.failures = 0
		return nil
	}

	b.failures++
	if probe || b.failures >= b.maxFailures {
		if b.state != stateOpen {
			slog.Warn("circuit breaker opened", "name", b.name, "consecutive_failures", b.failures)
		}
		b.state = stateOpen
		b.openedAt = b.now()
	}
	return err
}

func (b *breaker) State() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
