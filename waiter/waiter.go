// Package waiter decides when a navigated page is ready to be read.
//
// A Waiter is a one-shot state machine:
//
//	Idle ──activate──▶ Waiting ──condition met──▶ Satisfied
//	  │                   │
//	  │                   └──deadline/cancel──▶ Expired
//	  └──strategy none──────────────────────▶ Satisfied
//
// Satisfied and Expired are terminal. Run never returns while the machine
// is still Waiting.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/parscrape/models"
)

// State is a position in the wait state machine.
type State int

const (
	Idle State = iota
	Waiting
	Satisfied
	Expired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Satisfied:
		return "satisfied"
	case Expired:
		return "expired"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrExpired is returned by Run when the condition was not met before the
// context ended. The context error is wrapped alongside it.
var ErrExpired = errors.New("wait condition not met before deadline")

// Default timings.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultQuietWindow  = 500 * time.Millisecond
)

// Probe is the part of a browser session the waiter observes.
// engine.Session satisfies it.
type Probe interface {
	WaitNetworkIdle(ctx context.Context, quiet time.Duration) error
	HasElement(ctx context.Context, selector string) (bool, error)
	HasText(ctx context.Context, text string) (bool, error)
}

// Config selects the strategy and its timings.
type Config struct {
	Strategy     models.WaitStrategy
	Target       string
	SettleDelay  time.Duration
	PollInterval time.Duration // selector/text polling; DefaultPollInterval if zero
	QuietWindow  time.Duration // network-idle window; DefaultQuietWindow if zero
}

// Observer is told about every state transition.
type Observer func(from, to State)

// Waiter runs one wait strategy against one Probe.
type Waiter struct {
	cfg      Config
	probe    Probe
	observer Observer

	mu    sync.Mutex
	state State
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithObserver registers fn to be called on each transition.
func WithObserver(fn Observer) Option {
	return func(w *Waiter) { w.observer = fn }
}

// New creates a Waiter in the Idle state.
func New(probe Probe, cfg Config, opts ...Option) *Waiter {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.QuietWindow <= 0 {
		cfg.QuietWindow = DefaultQuietWindow
	}
	w := &Waiter{cfg: cfg, probe: probe}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the current state.
func (w *Waiter) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Waiter) transition(to State) {
	w.mu.Lock()
	from := w.state
	w.state = to
	w.mu.Unlock()
	if w.observer != nil {
		w.observer(from, to)
	}
}

// Run drives the machine to a terminal state. It returns nil when
// Satisfied and an error wrapping ErrExpired when Expired.
func (w *Waiter) Run(ctx context.Context) error {
	if s := w.State(); s != Idle {
		return fmt.Errorf("waiter already ran (state %s)", s)
	}

	var wait func(context.Context) bool
	switch w.cfg.Strategy {
	case models.WaitNone:
		w.transition(Satisfied)
		return nil
	case models.WaitFixedDelay:
		wait = w.fixedDelay
	case models.WaitNetworkIdle:
		wait = w.networkIdle
	case models.WaitSelectorPresent:
		wait = w.poll(func(ctx context.Context) (bool, error) {
			return w.probe.HasElement(ctx, w.cfg.Target)
		})
	case models.WaitTextPresent:
		wait = w.poll(func(ctx context.Context) (bool, error) {
			return w.probe.HasText(ctx, w.cfg.Target)
		})
	default:
		return fmt.Errorf("unknown wait strategy %q", w.cfg.Strategy)
	}

	w.transition(Waiting)
	if wait(ctx) {
		w.transition(Satisfied)
		return nil
	}
	w.transition(Expired)
	return fmt.Errorf("%w: %w", ErrExpired, ctx.Err())
}

func (w *Waiter) fixedDelay(ctx context.Context) bool {
	timer := time.NewTimer(w.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// networkIdle retries the backend's idle signal until it succeeds or ctx
// ends. A failed probe counts as "not idle yet".
func (w *Waiter) networkIdle(ctx context.Context) bool {
	for {
		err := w.probe.WaitNetworkIdle(ctx, w.cfg.QuietWindow)
		if ctx.Err() != nil {
			return false
		}
		if err == nil {
			return true
		}
		if !sleep(ctx, w.cfg.PollInterval) {
			return false
		}
	}
}

// poll checks cond immediately and then every PollInterval. Probe errors
// (a page mid-navigation, a detached frame) count as "not yet".
func (w *Waiter) poll(cond func(context.Context) (bool, error)) func(context.Context) bool {
	return func(ctx context.Context) bool {
		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()
		for {
			ok, err := cond(ctx)
			if ctx.Err() != nil {
				return false
			}
			if err == nil && ok {
				return true
			}
			select {
			case <-ctx.Done():
				return false
			case <-ticker.C:
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
