package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
	"coverfill/internal/merge"
	"coverfill/internal/normalize"
	"coverfill/internal/provider"
	"coverfill/internal/services"
)

// Run steps the engine until it leaves ModeRunning, pacing lookups with the
// configured limiter. It returns nil when the run completes, pauses, parks an
// item for disambiguation, or stops; the caller inspects Mode to tell which.
func (e *Engine) Run(ctx context.Context) error {
	for {
		if e.Mode() != ModeRunning {
			return nil
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		err := e.Step(ctx)
		switch {
		case errors.Is(err, ErrNotRunning):
			return nil
		case err != nil:
			return err
		}
	}
}

// Step advances the run by one item. Lookup outcomes are folded into item
// status; only ErrNotRunning, ErrBusy, or a cancelled ctx are returned.
func (e *Engine) Step(ctx context.Context) error {
	e.mu.Lock()
	if e.state.Mode != ModeRunning {
		e.mu.Unlock()
		return ErrNotRunning
	}
	if e.inFlight {
		e.mu.Unlock()
		return ErrBusy
	}
	if e.state.Cursor >= len(e.state.Input) {
		e.completeLocked()
		return nil
	}

	item := e.state.Input[e.state.Cursor].Clone()
	if existing, ok := e.state.Accumulated.Get(item.Name); ok && existing.Status == catalog.StatusCompleted {
		e.state.Cursor++
		snapshot := e.snapshotLocked()
		e.mu.Unlock()
		e.logger.Debug("item already completed; skipping",
			logging.Item(item.Name),
			logging.Int("cursor", snapshot.Cursor),
		)
		e.emitStep(snapshot)
		return nil
	}
	e.inFlight = true
	generation := e.generation
	e.mu.Unlock()

	query := normalize.Name(item.Name)
	known := item.Known()
	lookupCtx := services.WithRunID(ctx, e.runID)
	lookupCtx = services.WithItemName(lookupCtx, item.Name)
	lookupCtx = services.WithRequestID(lookupCtx, uuid.NewString())

	started := time.Now()
	result := e.gateway.Lookup(lookupCtx, query, known)
	latency := time.Since(started)

	e.mu.Lock()
	e.inFlight = false
	if generation != e.generation {
		e.mu.Unlock()
		e.logger.DebugContext(lookupCtx, "lookup result discarded after stop or reset",
			logging.String("outcome", result.Kind.String()),
		)
		return nil
	}
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return err
	}
	outcome := e.applyLocked(item, known, result)
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logOutcome(lookupCtx, query, result, outcome, latency)
	e.emitStep(snapshot)
	if outcome.parked && e.hooks.OnAwaiting != nil && snapshot.Pending != nil {
		e.hooks.OnAwaiting(*snapshot.Pending)
	}
	return nil
}

type stepOutcome struct {
	status    catalog.Status
	committed bool
	advanced  bool
	parked    bool
	paused    bool
}

// applyLocked folds a lookup result into the state. Must be called with e.mu held.
func (e *Engine) applyLocked(item catalog.Item, known catalog.KnownFlags, result provider.Result) stepOutcome {
	var resolved catalog.Item
	switch result.Kind {
	case provider.KindExactMatch:
		if result.Cover != nil || known.HasImage {
			resolved = item.Fill(result.Metadata, result.Cover).WithStatus(catalog.StatusCompleted)
		} else {
			resolved = item.Fill(result.Metadata, nil).WithStatus(catalog.StatusNoResults)
		}
	case provider.KindSuggestions:
		if e.state.PauseRequested {
			e.pauseLocked()
			return stepOutcome{status: catalog.StatusPending, paused: true}
		}
		e.state.Pending = &Pending{
			Item:       item.Clone(),
			Candidates: append([]catalog.Candidate(nil), result.Candidates...),
			Provider:   result.Provider,
		}
		e.state.Mode = ModeAwaiting
		return stepOutcome{status: catalog.StatusPending, parked: true}
	case provider.KindFailure:
		resolved = item.WithStatus(catalog.StatusErrored)
	default:
		resolved = item.WithStatus(catalog.StatusNoResults)
	}

	if e.state.PauseRequested {
		out := stepOutcome{status: resolved.Status, paused: true}
		switch resolved.Status {
		case catalog.StatusCompleted:
			out.committed = e.state.Accumulated.Insert(resolved)
		case catalog.StatusErrored:
			// A failure is never retried within the run.
			out.committed = e.state.Accumulated.Insert(resolved)
			out.advanced = true
			e.state.Cursor++
		}
		e.pauseLocked()
		return out
	}
	committed := e.state.Accumulated.Insert(resolved)
	e.state.Cursor++
	return stepOutcome{status: resolved.Status, committed: committed, advanced: true}
}

func (e *Engine) pauseLocked() {
	e.state.PauseRequested = false
	e.state.Mode = ModePaused
}

// completeLocked finishes the run. It is called with e.mu held and releases it.
func (e *Engine) completeLocked() {
	e.state.Mode = ModeIdle
	e.state.Completed = true
	e.state.PauseRequested = false
	e.state.Pending = nil
	merged := merge.Results(e.state.Input, e.state.Accumulated)
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	counts := snapshot.Accumulated.CountByStatus()
	e.logger.Info("run completed",
		logging.String(logging.FieldEventType, "run_completed"),
		logging.Int("total", snapshot.Total()),
		logging.Int("completed", counts[catalog.StatusCompleted]),
		logging.Int("no_results", counts[catalog.StatusNoResults]),
		logging.Int("errored", counts[catalog.StatusErrored]),
	)
	e.emitStep(snapshot)
	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(merged)
	}
}

func (e *Engine) logOutcome(ctx context.Context, query string, result provider.Result, outcome stepOutcome, latency time.Duration) {
	attrs := []logging.Attr{
		logging.String("query", query),
		logging.Provider(result.Provider),
		logging.String("outcome", result.Kind.String()),
		logging.String("status", string(outcome.status)),
		logging.Duration("latency", latency),
	}
	switch {
	case result.Kind == provider.KindFailure:
		hint := "check provider credentials and base_url"
		if services.IsRetryable(result.Err) {
			hint = "transient provider error; run the input again later to retry errored items"
		}
		attrs = append(attrs, logging.Error(result.Err), logging.String(logging.FieldErrorHint, hint))
		logging.WarnWithContext(ctx, e.logger, "lookup failed", "lookup_failed", attrs...)
	case outcome.parked:
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "awaiting_disambiguation"),
			logging.Int("candidates", len(result.Candidates)),
		)
		e.logger.InfoContext(ctx, "awaiting disambiguation", logging.Args(attrs...)...)
	case outcome.paused:
		attrs = append(attrs,
			logging.String(logging.FieldEventType, "run_paused"),
			logging.Bool("committed", outcome.committed),
		)
		e.logger.InfoContext(ctx, "run paused after lookup", logging.Args(attrs...)...)
	default:
		attrs = append(attrs, logging.String(logging.FieldEventType, "item_processed"))
		e.logger.InfoContext(ctx, "item processed", logging.Args(attrs...)...)
	}
}
