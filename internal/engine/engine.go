package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
	"coverfill/internal/provider"
)

var (
	// ErrNotRunning is returned by Step when the engine is not in ModeRunning.
	ErrNotRunning = errors.New("engine not running")
	// ErrBusy is returned by Step while another lookup is in flight.
	ErrBusy = errors.New("lookup already in flight")
	// ErrInvalidTransition is returned by control calls not allowed from the current mode.
	ErrInvalidTransition = errors.New("invalid engine transition")
	// ErrNotAwaiting is returned by Resolve when no item is parked.
	ErrNotAwaiting = errors.New("engine not awaiting disambiguation")
)

// DefaultStepDelay is the minimum spacing between two lookups.
const DefaultStepDelay = 100 * time.Millisecond

// Hooks receive engine events. Hooks run outside the engine lock on the
// goroutine that caused the transition.
type Hooks struct {
	// OnStep runs after every committed transition with a snapshot of the state.
	OnStep func(State)
	// OnComplete runs once the cursor passes the last item, with the merged results.
	OnComplete func([]catalog.Item)
	// OnAwaiting runs when an item is parked for disambiguation.
	OnAwaiting func(Pending)
}

// Engine walks an input list through a provider gateway.
type Engine struct {
	gateway provider.Gateway
	limiter *rate.Limiter
	hooks   Hooks
	logger  *slog.Logger
	runID   string

	mu       sync.Mutex
	state    State
	inFlight bool
	// generation changes on Stop and Reset so an in-flight lookup started
	// before either call is dropped when it returns.
	generation uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithStepDelay sets the minimum delay between lookups. Zero disables pacing.
func WithStepDelay(delay time.Duration) Option {
	return func(e *Engine) {
		if delay <= 0 {
			e.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		e.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// WithLimiter injects a pacing limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(e *Engine) {
		if limiter != nil {
			e.limiter = limiter
		}
	}
}

// WithHooks registers event hooks.
func WithHooks(hooks Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRunID tags lookups with a run identifier for log correlation.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// New constructs an idle engine over input.
func New(gateway provider.Gateway, input []catalog.Item, opts ...Option) *Engine {
	state := State{
		Input:       make([]catalog.Item, len(input)),
		Accumulated: catalog.NewResultSet(),
		Mode:        ModeIdle,
	}
	for i, item := range input {
		state.Input[i] = item.Clone()
	}
	return build(gateway, state, opts)
}

// Restore rebuilds an engine from a persisted state. A state saved while
// running is restored as paused since no lookup survives a restart.
func Restore(gateway provider.Gateway, state State, opts ...Option) (*Engine, error) {
	if state.Accumulated == nil {
		state.Accumulated = catalog.NewResultSet()
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("restore engine state: %w", err)
	}
	state = state.Clone()
	if state.Mode == ModeRunning {
		state.Mode = ModePaused
		state.PauseRequested = false
	}
	return build(gateway, state, opts), nil
}

func build(gateway provider.Gateway, state State, opts []Option) *Engine {
	e := &Engine{
		gateway: gateway,
		state:   state,
		limiter: rate.NewLimiter(rate.Every(DefaultStepDelay), 1),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "engine")
	return e
}

// State returns a snapshot of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

// Mode returns the current mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Mode
}

// snapshotLocked must be called with e.mu held.
func (e *Engine) snapshotLocked() State {
	return e.state.Clone()
}

func (e *Engine) emitStep(state State) {
	if e.hooks.OnStep != nil {
		e.hooks.OnStep(state)
	}
}
