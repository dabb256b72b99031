package provider

import (
	"context"

	"coverfill/internal/catalog"
)

// Kind tags a lookup outcome.
type Kind int

const (
	KindNotFound Kind = iota
	KindExactMatch
	KindSuggestions
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindExactMatch:
		return "exact_match"
	case KindSuggestions:
		return "suggestions"
	case KindFailure:
		return "failure"
	default:
		return "not_found"
	}
}

// Result is the outcome of a single lookup. Only the fields relevant to Kind
// are populated.
type Result struct {
	Kind       Kind
	Provider   string
	Cover      *catalog.Cover
	Metadata   *catalog.Metadata
	Candidates []catalog.Candidate
	Err        error
}

// ExactMatch builds a result for a name match. Either argument may be nil.
func ExactMatch(provider string, cover *catalog.Cover, meta *catalog.Metadata) Result {
	return Result{Kind: KindExactMatch, Provider: provider, Cover: cover, Metadata: meta}
}

// Suggestions builds a result listing near matches. Candidates are stamped
// with the provider so a later FetchDetail can be routed back to it.
func Suggestions(provider string, candidates []catalog.Candidate) Result {
	stamped := make([]catalog.Candidate, len(candidates))
	for i, candidate := range candidates {
		candidate.Provider = provider
		stamped[i] = candidate
	}
	return Result{Kind: KindSuggestions, Provider: provider, Candidates: stamped}
}

// NotFound builds a result for a lookup that matched nothing.
func NotFound(provider string) Result {
	return Result{Kind: KindNotFound, Provider: provider}
}

// Failure builds a result for a lookup that could not be completed.
func Failure(provider string, err error) Result {
	return Result{Kind: KindFailure, Provider: provider, Err: err}
}

// Detail is the concrete data behind a selected candidate.
type Detail struct {
	Provider string
	Covers   []catalog.Cover
	Metadata *catalog.Metadata
}

// Gateway is the lookup surface the engine and broker depend on.
type Gateway interface {
	Lookup(ctx context.Context, normalizedName string, known catalog.KnownFlags) Result
	FetchDetail(ctx context.Context, candidate catalog.Candidate) (Detail, error)
}

// Backend is one concrete lookup service.
type Backend interface {
	Name() string
	// Available reports whether the backend is configured for use.
	Available() bool
	Lookup(ctx context.Context, normalizedName string, known catalog.KnownFlags) Result
	FetchDetail(ctx context.Context, id int64) (Detail, error)
}
