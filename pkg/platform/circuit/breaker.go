// Package circuit implements a three-state circuit breaker for remote
// dependencies. A breaker trips after consecutive failures, sheds load while
// open, and probes the dependency with a single trial call once the recovery
// timeout elapses.
package circuit

import (
	"context"
	"sync"
	"time"

	"popcheck/pkg/platform/sentinel"
)

// State is the breaker's position in the closed/open/half-open machine.
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

const (
	defaultFailureThreshold = 5
	defaultRecoveryTimeout  = 30 * time.Second
	defaultRequestTimeout   = 10 * time.Second
)

// Breaker guards calls to one named dependency. All state transitions happen
// under the mutex; the wrapped call itself runs outside it.
type Breaker struct {
	mu            sync.Mutex
	name          string
	state         State
	failureCount  int
	lastFailure   time.Time
	trialInFlight bool

	failureThreshold int
	recoveryTimeout  time.Duration
	requestTimeout   time.Duration
	now              func() time.Time
	onStateChange    func(name string, from, to State)
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithRecoveryTimeout sets how long the circuit stays open before a trial
// call is allowed through.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		if d > 0 {
			b.recoveryTimeout = d
		}
	}
}

// WithRequestTimeout bounds each wrapped call. Zero disables the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(b *Breaker) {
		b.requestTimeout = d
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateChangeHook registers a callback invoked on every transition,
// outside the breaker's own call path (used for metrics and logging).
func WithStateChangeHook(fn func(name string, from, to State)) Option {
	return func(b *Breaker) {
		b.onStateChange = fn
	}
}

// New creates a closed breaker for the named dependency.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: defaultFailureThreshold,
		recoveryTimeout:  defaultRecoveryTimeout,
		requestTimeout:   defaultRequestTimeout,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the dependency name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether calls are currently being rejected.
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// Execute runs fn under the breaker. While open it fails fast with
// sentinel.ErrCircuitOpen, except for the single trial call admitted after
// the recovery timeout. A call exceeding the request timeout fails with
// sentinel.ErrTimeout and counts toward the failure threshold; the wrapped
// fn keeps running in the background with its result discarded, so callers
// must pass work that is safe to abandon.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := b.run(ctx, fn)
	b.record(err)
	return err
}

// allow decides whether a call may proceed, moving OPEN to HALF_OPEN when the
// recovery timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.recoveryTimeout {
			return sentinel.ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.trialInFlight = true
		return nil
	case StateHalfOpen:
		// Only one trial probes the dependency at a time.
		if b.trialInFlight {
			return sentinel.ErrCircuitOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

// run races fn against the request timeout.
func (b *Breaker) run(ctx context.Context, fn func(context.Context) error) error {
	if b.requestTimeout <= 0 {
		return fn(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, b.requestTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(cctx)
	}()

	select {
	case err := <-done:
		return err
	case <-cctx.Done():
		return sentinel.ErrTimeout
	}
}

// record applies the call outcome to the state machine.
func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if err == nil {
		if b.state == StateHalfOpen {
			b.transition(StateClosed)
		}
		b.failureCount = 0
		return
	}

	b.lastFailure = b.now()
	if b.state == StateHalfOpen {
		// Trial failed: back to open, recovery clock restarts.
		b.transition(StateOpen)
		return
	}
	b.failureCount++
	if b.failureCount >= b.failureThreshold {
		b.transition(StateOpen)
	}
}

// Reset force-closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failureCount = 0
	b.trialInFlight = false
}

// transition must be called with the mutex held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if b.onStateChange != nil {
		hook := b.onStateChange
		name := b.name
		go hook(name, from, to)
	}
}
