package broker

import (
	"context"

	"coverfill/internal/catalog"
	"coverfill/internal/engine"
	"coverfill/internal/provider"
)

// Action is the kind of decision a human makes for a parked item.
type Action int

const (
	ActionSelect Action = iota + 1
	ActionManual
	ActionSkip
)

// Decision is the answer to a candidate prompt.
type Decision struct {
	Action Action
	// Candidate indexes Pending.Candidates when Action is ActionSelect.
	Candidate int
	// URL is the cover address when Action is ActionManual.
	URL string
}

// Prompter asks a human to disambiguate.
type Prompter interface {
	// PickCandidate presents the candidates of a parked item.
	PickCandidate(ctx context.Context, pending engine.Pending) (Decision, error)
	// PickCover presents the covers of a selected candidate. Returning
	// ok=false goes back to the candidate list.
	PickCover(ctx context.Context, candidate catalog.Candidate, detail provider.Detail) (index int, ok bool, err error)
	// Notice reports a problem to the human.
	Notice(ctx context.Context, message string)
}

// AutoSkip skips every parked item. It backs non-interactive runs.
type AutoSkip struct{}

func (AutoSkip) PickCandidate(context.Context, engine.Pending) (Decision, error) {
	return Decision{Action: ActionSkip}, nil
}

func (AutoSkip) PickCover(context.Context, catalog.Candidate, provider.Detail) (int, bool, error) {
	return 0, false, nil
}

func (AutoSkip) Notice(context.Context, string) {}
