// Package broker turns a parked item into a human decision and applies it to
// the engine.
package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/logging"
	"coverfill/internal/provider"
	"coverfill/internal/services"
	"coverfill/internal/translate"
)

// Broker mediates between a parked item, the gateway, and a Prompter.
type Broker struct {
	gateway    provider.Gateway
	prompter   Prompter
	translator translate.Translator
	logger     *slog.Logger
}

// Option customizes a Broker.
type Option func(*Broker)

// WithTranslator translates detail descriptions before they are merged.
func WithTranslator(t translate.Translator) Option {
	return func(b *Broker) {
		if t != nil {
			b.translator = t
		}
	}
}

// WithLogger sets the broker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New constructs a Broker.
func New(gateway provider.Gateway, prompter Prompter, opts ...Option) *Broker {
	b := &Broker{
		gateway:    gateway,
		prompter:   prompter,
		translator: translate.Noop{},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "broker")
	return b
}

// Resolve asks for a decision on the engine's parked item and applies it.
// A decision the engine rejects as invalid is reported and asked again.
func (b *Broker) Resolve(ctx context.Context, eng *engine.Engine) error {
	for {
		state := eng.State()
		if state.Mode != engine.ModeAwaiting || state.Pending == nil {
			return engine.ErrNotAwaiting
		}
		resolution, err := b.Decide(ctx, *state.Pending)
		if err != nil {
			return err
		}
		err = eng.Resolve(resolution)
		if err == nil {
			return nil
		}
		if !errors.Is(err, services.ErrValidation) {
			return err
		}
		b.prompter.Notice(ctx, err.Error())
	}
}

// Decide loops over the prompter until it produces a usable resolution. A
// detail fetch failure re-presents the candidates.
func (b *Broker) Decide(ctx context.Context, pending engine.Pending) (engine.Resolution, error) {
	ctx = services.WithItemName(ctx, pending.Item.Name)
	for {
		if err := ctx.Err(); err != nil {
			return engine.Resolution{}, err
		}
		decision, err := b.prompter.PickCandidate(ctx, pending)
		if err != nil {
			return engine.Resolution{}, fmt.Errorf("pick candidate: %w", err)
		}
		switch decision.Action {
		case ActionSkip:
			b.logger.InfoContext(ctx, "candidate prompt skipped",
				logging.String(logging.FieldEventType, "disambiguation_skipped"))
			return engine.Skip(), nil
		case ActionManual:
			if err := engine.ValidateCoverURL(decision.URL); err != nil {
				b.prompter.Notice(ctx, err.Error())
				continue
			}
			return engine.Manual(decision.URL), nil
		case ActionSelect:
			resolution, ok, err := b.selectCandidate(ctx, pending, decision.Candidate)
			if err != nil {
				return engine.Resolution{}, err
			}
			if ok {
				return resolution, nil
			}
		default:
			b.prompter.Notice(ctx, "unrecognized choice")
		}
	}
}

func (b *Broker) selectCandidate(ctx context.Context, pending engine.Pending, index int) (engine.Resolution, bool, error) {
	if index < 0 || index >= len(pending.Candidates) {
		b.prompter.Notice(ctx, fmt.Sprintf("choice %d is out of range", index+1))
		return engine.Resolution{}, false, nil
	}
	candidate := pending.Candidates[index]
	detail, err := b.gateway.FetchDetail(ctx, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return engine.Resolution{}, false, ctxErr
		}
		logging.WarnWithContext(ctx, b.logger, "candidate detail fetch failed", "detail_failed",
			logging.Provider(candidate.Provider),
			logging.Int64("candidate_id", candidate.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "choose another candidate or enter a cover URL"),
		)
		b.prompter.Notice(ctx, fmt.Sprintf("could not load covers for %s: %v", candidate.DisplayName, err))
		return engine.Resolution{}, false, nil
	}
	if len(detail.Covers) == 0 {
		b.prompter.Notice(ctx, fmt.Sprintf("%s has no covers", candidate.DisplayName))
		return engine.Resolution{}, false, nil
	}

	coverIndex, ok, err := b.prompter.PickCover(ctx, candidate, detail)
	if err != nil {
		return engine.Resolution{}, false, fmt.Errorf("pick cover: %w", err)
	}
	if !ok {
		return engine.Resolution{}, false, nil
	}
	if coverIndex < 0 || coverIndex >= len(detail.Covers) {
		b.prompter.Notice(ctx, fmt.Sprintf("cover %d is out of range", coverIndex+1))
		return engine.Resolution{}, false, nil
	}

	meta := b.detailMetadata(ctx, pending.Item, candidate, detail.Metadata)
	return engine.Select(detail.Covers[coverIndex], meta), true, nil
}

// detailMetadata merges detail metadata over the candidate's own fields and
// translates a description the item still needs.
func (b *Broker) detailMetadata(ctx context.Context, item catalog.Item, candidate catalog.Candidate, meta *catalog.Metadata) *catalog.Metadata {
	out := catalog.Metadata{
		Name:        candidate.DisplayName,
		Year:        candidate.Year,
		Description: candidate.Description,
	}
	if meta != nil {
		if strings.TrimSpace(meta.Name) != "" {
			out.Name = meta.Name
		}
		if strings.TrimSpace(meta.Year) != "" {
			out.Year = meta.Year
		}
		if strings.TrimSpace(meta.Description) != "" {
			out.Description = meta.Description
		}
	}
	restricted := out.Restrict(item.Known())
	if restricted.Description != "" {
		restricted.Description = b.translator.Translate(ctx, restricted.Description)
	}
	return restricted
}
