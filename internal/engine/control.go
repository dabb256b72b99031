package engine

import (
	"fmt"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
)

// Start begins a run. From idle the cursor and accumulated results are
// cleared first; from paused the run continues where it stopped.
func (e *Engine) Start() error {
	e.mu.Lock()
	switch e.state.Mode {
	case ModeIdle:
		e.state.Cursor = 0
		e.state.Accumulated = catalog.NewResultSet()
		e.state.Pending = nil
		e.state.Completed = false
		e.state.PauseRequested = false
		e.state.Mode = ModeRunning
	case ModePaused:
		e.state.Mode = ModeRunning
	case ModeRunning:
		e.mu.Unlock()
		return nil
	default:
		mode := e.state.Mode
		e.mu.Unlock()
		return fmt.Errorf("start from %s: %w", mode, ErrInvalidTransition)
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("run started",
		logging.String(logging.FieldEventType, "run_started"),
		logging.Int("cursor", snapshot.Cursor),
		logging.Int("total", snapshot.Total()),
	)
	e.emitStep(snapshot)
	return nil
}

// Resume continues a paused run. While awaiting disambiguation it withdraws a
// pending pause request so the run continues once the item is resolved.
func (e *Engine) Resume() error {
	e.mu.Lock()
	switch e.state.Mode {
	case ModePaused:
		e.state.Mode = ModeRunning
		e.state.PauseRequested = false
	case ModeRunning, ModeAwaiting:
		e.state.PauseRequested = false
		e.mu.Unlock()
		return nil
	default:
		mode := e.state.Mode
		e.mu.Unlock()
		return fmt.Errorf("resume from %s: %w", mode, ErrInvalidTransition)
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("run resumed",
		logging.String(logging.FieldEventType, "run_resumed"),
		logging.Int("cursor", snapshot.Cursor),
	)
	e.emitStep(snapshot)
	return nil
}

// Pause halts a running engine. When a lookup is in flight, or an item is
// awaiting disambiguation, the request is recorded and applied once that
// work resolves.
func (e *Engine) Pause() error {
	e.mu.Lock()
	switch {
	case e.state.Mode == ModePaused:
		e.mu.Unlock()
		return nil
	case e.state.Mode == ModeAwaiting, e.state.Mode == ModeRunning && e.inFlight:
		e.state.PauseRequested = true
		e.mu.Unlock()
		e.logger.Info("pause requested",
			logging.String(logging.FieldEventType, "pause_requested"),
		)
		return nil
	case e.state.Mode == ModeRunning:
		e.state.Mode = ModePaused
	default:
		mode := e.state.Mode
		e.mu.Unlock()
		return fmt.Errorf("pause from %s: %w", mode, ErrInvalidTransition)
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("run paused",
		logging.String(logging.FieldEventType, "run_paused"),
		logging.Int("cursor", snapshot.Cursor),
	)
	e.emitStep(snapshot)
	return nil
}

// Stop ends the run. The outcome of a lookup in flight is discarded.
func (e *Engine) Stop() error {
	e.mu.Lock()
	switch e.state.Mode {
	case ModeStopped:
		e.mu.Unlock()
		return nil
	case ModeIdle:
		e.mu.Unlock()
		return fmt.Errorf("stop from %s: %w", ModeIdle, ErrInvalidTransition)
	}
	e.state.Mode = ModeStopped
	e.state.Pending = nil
	e.state.PauseRequested = false
	e.generation++
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("run stopped",
		logging.String(logging.FieldEventType, "run_stopped"),
		logging.Int("cursor", snapshot.Cursor),
		logging.Int("processed", snapshot.Accumulated.Len()),
	)
	e.emitStep(snapshot)
	return nil
}

// Reset returns the engine to idle with an empty result set.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.state.Cursor = 0
	e.state.Accumulated = catalog.NewResultSet()
	e.state.Pending = nil
	e.state.PauseRequested = false
	e.state.Completed = false
	e.state.Mode = ModeIdle
	e.generation++
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("run reset", logging.String(logging.FieldEventType, "run_reset"))
	e.emitStep(snapshot)
}
