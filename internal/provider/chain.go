package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
	"coverfill/internal/services"
	"coverfill/internal/textutil"
)

// DefaultSuggestionLimit caps the candidates handed to a human.
const DefaultSuggestionLimit = 5

// Chain consults backends in order and implements Gateway.
type Chain struct {
	backends        []Backend
	suggestionLimit int
	logger          *slog.Logger
}

var _ Gateway = (*Chain)(nil)

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithSuggestionLimit overrides the number of candidates kept per suggestion list.
func WithSuggestionLimit(limit int) ChainOption {
	return func(c *Chain) {
		if limit > 0 {
			c.suggestionLimit = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		c.logger = logging.NewComponentLogger(logger, "provider")
	}
}

// NewChain builds a chain over backends in the supplied order. Nil backends
// are ignored.
func NewChain(backends []Backend, opts ...ChainOption) *Chain {
	chain := &Chain{
		suggestionLimit: DefaultSuggestionLimit,
		logger:          logging.NewNop(),
	}
	for _, backend := range backends {
		if backend != nil {
			chain.backends = append(chain.backends, backend)
		}
	}
	for _, opt := range opts {
		opt(chain)
	}
	return chain
}

// Names lists the backends in consultation order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.backends))
	for _, backend := range c.backends {
		names = append(names, backend.Name())
	}
	return names
}

// Lookup asks each available backend in turn. The next backend is consulted
// only after NotFound; the first exact match, suggestion list, or failure is
// returned as-is.
func (c *Chain) Lookup(ctx context.Context, normalizedName string, known catalog.KnownFlags) Result {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	consulted := 0
	for _, backend := range c.backends {
		if !backend.Available() {
			c.logger.DebugContext(ctx, "provider skipped; not configured",
				logging.Provider(backend.Name()))
			continue
		}
		consulted++
		result := backend.Lookup(ctx, normalizedName, known)
		if result.Provider == "" {
			result.Provider = backend.Name()
		}
		c.logger.DebugContext(ctx, "provider lookup finished",
			logging.Provider(result.Provider),
			logging.String("query", normalizedName),
			logging.String("outcome", result.Kind.String()),
		)
		switch result.Kind {
		case KindNotFound:
			continue
		case KindSuggestions:
			if len(result.Candidates) == 0 {
				continue
			}
			return c.capSuggestions(normalizedName, result)
		default:
			return result
		}
	}
	if consulted == 0 {
		return Failure("", services.Wrap(services.ErrUnavailable, "provider", "lookup",
			fmt.Sprintf("no configured backend among [%s]", strings.Join(c.Names(), ", ")), nil))
	}
	return NotFound("")
}

// capSuggestions trims an oversized list to the closest titles. Lists within
// the limit keep the backend's order.
func (c *Chain) capSuggestions(query string, result Result) Result {
	if len(result.Candidates) > c.suggestionLimit {
		titles := make([]string, len(result.Candidates))
		for i, candidate := range result.Candidates {
			titles[i] = candidate.DisplayName
		}
		ranked := make([]catalog.Candidate, 0, c.suggestionLimit)
		for _, idx := range textutil.RankIndexes(query, titles)[:c.suggestionLimit] {
			ranked = append(ranked, result.Candidates[idx])
		}
		result.Candidates = ranked
	}
	for i := range result.Candidates {
		if result.Candidates[i].Provider == "" {
			result.Candidates[i].Provider = result.Provider
		}
	}
	return result
}

// FetchDetail routes to the backend that produced the candidate.
func (c *Chain) FetchDetail(ctx context.Context, candidate catalog.Candidate) (Detail, error) {
	for _, backend := range c.backends {
		if backend.Name() != candidate.Provider {
			continue
		}
		if !backend.Available() {
			return Detail{}, services.Wrap(services.ErrUnavailable, backend.Name(), "fetch detail", "backend not configured", nil)
		}
		detail, err := backend.FetchDetail(ctx, candidate.ID)
		if err != nil {
			return Detail{}, err
		}
		if detail.Provider == "" {
			detail.Provider = backend.Name()
		}
		return detail, nil
	}
	return Detail{}, services.Wrap(services.ErrValidation, "provider", "fetch detail",
		fmt.Sprintf("unknown provider %q", candidate.Provider), nil)
}
