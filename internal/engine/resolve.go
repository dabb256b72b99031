package engine

import (
	"fmt"
	"net/url"
	"strings"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
	"coverfill/internal/services"
)

// ResolutionKind enumerates the human decisions for a parked item.
type ResolutionKind int

const (
	ResolveSelect ResolutionKind = iota + 1
	ResolveManual
	ResolveSkip
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolveSelect:
		return "select"
	case ResolveManual:
		return "manual"
	case ResolveSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Resolution is the decision applied to the parked item.
type Resolution struct {
	Kind     ResolutionKind
	Cover    catalog.Cover
	Metadata *catalog.Metadata
	URL      string
}

// Select resolves with a cover picked from a candidate's detail.
func Select(cover catalog.Cover, meta *catalog.Metadata) Resolution {
	return Resolution{Kind: ResolveSelect, Cover: cover, Metadata: meta}
}

// Manual resolves with a cover URL typed in by a human.
func Manual(rawURL string) Resolution {
	return Resolution{Kind: ResolveManual, URL: strings.TrimSpace(rawURL)}
}

// Skip keeps the item as submitted.
func Skip() Resolution {
	return Resolution{Kind: ResolveSkip}
}

// ValidateCoverURL accepts absolute http and https URLs only.
func ValidateCoverURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return services.Wrap(services.ErrValidation, "engine", "resolve", "cover url is empty", nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return services.Wrap(services.ErrValidation, "engine", "resolve", "cover url is malformed", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return services.Wrap(services.ErrValidation, "engine", "resolve",
			fmt.Sprintf("cover url scheme %q not supported", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return services.Wrap(services.ErrValidation, "engine", "resolve", "cover url has no host", nil)
	}
	return nil
}

// Resolve applies a decision to the parked item, advances the cursor, and
// returns the engine to running, or to paused when a pause was requested
// while awaiting. The state is unchanged when an error is returned.
func (e *Engine) Resolve(res Resolution) error {
	e.mu.Lock()
	if e.state.Mode == ModeStopped {
		e.mu.Unlock()
		return fmt.Errorf("resolve after stop: %w", ErrInvalidTransition)
	}
	if e.state.Mode != ModeAwaiting || e.state.Pending == nil {
		e.mu.Unlock()
		return ErrNotAwaiting
	}
	item := e.state.Pending.Item.Clone()

	var resolved catalog.Item
	switch res.Kind {
	case ResolveSelect:
		if strings.TrimSpace(res.Cover.URL) == "" {
			e.mu.Unlock()
			return services.Wrap(services.ErrValidation, "engine", "resolve", "selected cover has no url", nil)
		}
		cover := res.Cover
		resolved = item.Fill(res.Metadata, &cover).WithStatus(catalog.StatusCompleted)
	case ResolveManual:
		if err := ValidateCoverURL(res.URL); err != nil {
			e.mu.Unlock()
			return err
		}
		cover := catalog.ManualCover(res.URL)
		resolved = item.Fill(nil, &cover).WithStatus(catalog.StatusCompleted)
	case ResolveSkip:
		resolved = item.WithStatus(catalog.StatusNoResults)
	default:
		e.mu.Unlock()
		return services.Wrap(services.ErrValidation, "engine", "resolve",
			fmt.Sprintf("unknown resolution %d", res.Kind), nil)
	}

	e.state.Accumulated.Insert(resolved)
	e.state.Cursor++
	e.state.Pending = nil
	if e.state.PauseRequested {
		e.pauseLocked()
	} else {
		e.state.Mode = ModeRunning
	}
	snapshot := e.snapshotLocked()
	e.mu.Unlock()

	e.logger.Info("disambiguation resolved",
		logging.String(logging.FieldEventType, "disambiguation_resolved"),
		logging.Item(item.Name),
		logging.String("resolution", res.Kind.String()),
		logging.String("status", string(resolved.Status)),
		logging.String("mode", string(snapshot.Mode)),
	)
	e.emitStep(snapshot)
	return nil
}
