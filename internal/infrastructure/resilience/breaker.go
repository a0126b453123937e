package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function while the breaker is open
// or while a half-open probe is already in flight.
var ErrCircuitOpen = errors.New("backend temporarily unavailable (circuit open)")

// State of a breaker. The numeric values are exported as a metric.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures a Breaker. Zero values pick the defaults noted per field.
type Settings struct {
	// Failures is how many consecutive failures open the breaker. Default 5.
	Failures int
	// Cooldown is how long the breaker stays open before letting one probe through. Default 30s.
	Cooldown time.Duration
	// IsFailure decides which errors count against the backend. Default: any non-nil error.
	// Errors it rejects are returned to the caller but count as successes.
	IsFailure func(error) bool
	// OnStateChange is called with the breaker lock held; it must not call back into the breaker.
	OnStateChange func(from, to State)
}

// Breaker fails fast while a dependency keeps failing.
type Breaker struct {
	settings Settings
	now      func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New creates a closed breaker.
func New(settings Settings) *Breaker {
	if settings.Failures <= 0 {
		settings.Failures = 5
	}
	if settings.Cooldown <= 0 {
		settings.Cooldown = 30 * time.Second
	}
	if settings.IsFailure == nil {
		settings.IsFailure = func(err error) bool { return err != nil }
	}
	return &Breaker{settings: settings, now: time.Now}
}

// State returns the current state, moving open to half-open once the cooldown has passed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState()
}

// Do calls fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	probe, err := b.before()
	if err != nil {
		return err
	}

	err = fn()
	b.after(probe, b.settings.IsFailure(err))
	return err
}

func (b *Breaker) before() (probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if b.probing {
			return false, ErrCircuitOpen
		}
		b.probing = true
		return true, nil
	}
	return false, nil
}

func (b *Breaker) after(probe, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if probe {
		b.probing = false
		if failed {
			b.open()
		} else {
			b.setState(StateClosed)
		}
		return
	}

	// A call admitted while closed may finish after another call opened the breaker.
	if b.state != StateClosed {
		return
	}
	if !failed {
		b.failures = 0
		return
	}
	b.failures++
	if b.failures >= b.settings.Failures {
		b.open()
	}
}

func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.setState(StateOpen)
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}
	prev := b.state
	b.state = state
	b.failures = 0

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(prev, state)
	}
}
