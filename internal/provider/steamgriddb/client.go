// Package steamgriddb implements the curated cover-art lookup backend.
package steamgriddb

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"coverfill/internal/catalog"
	"coverfill/internal/logging"
	"coverfill/internal/normalize"
	"coverfill/internal/provider"
	"coverfill/internal/services"
)

// Name identifies this backend in the provider chain.
const Name = "steamgriddb"

const (
	userAgent       = "coverfill/1.0"
	maxDetailCovers = 50
	maxSuggestions  = 10
)

// Game is a search hit.
type Game struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	Logo     string `json:"logo,omitempty"`
}

// Grid is a cover image for a game.
type Grid struct {
	ID     int64    `json:"id"`
	URL    string   `json:"url"`
	Thumb  string   `json:"thumb"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Score  int      `json:"score"`
	Style  string   `json:"style"`
	Tags   []string `json:"tags"`
}

type envelope[T any] struct {
	Success bool     `json:"success"`
	Data    []T      `json:"data"`
	Errors  []string `json:"errors,omitempty"`
}

// Client talks to the SteamGridDB v2 API.
type Client struct {
	apiKey     string
	baseURL    string
	width      int
	height     int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ provider.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter overrides request pacing.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, Name)
	}
}

// WithDimensions sets the preferred cover size, e.g. "600x900".
func WithDimensions(dimensions string) Option {
	return func(c *Client) {
		if w, h, ok := parseDimensions(dimensions); ok {
			c.width, c.height = w, h
		}
	}
}

// New creates a SteamGridDB client. A client without an API key is valid but
// reports itself unavailable.
func New(apiKey, baseURL string, opts ...Option) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		width:      600,
		height:     900,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(4), 1),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Name() string { return Name }

func (c *Client) Available() bool { return c.apiKey != "" && c.baseURL != "" }

// Lookup searches by name. An exact case-insensitive name match yields the
// best ranked cover (skipped when the item already has an image); otherwise
// the search hits become suggestions.
func (c *Client) Lookup(ctx context.Context, name string, known catalog.KnownFlags) provider.Result {
	query := normalize.Name(name)
	if query == "" {
		return provider.NotFound(Name)
	}
	games, err := c.Search(ctx, query)
	if err != nil {
		return provider.Failure(Name, err)
	}

	for _, game := range games {
		if !normalize.Equal(game.Name, query) {
			continue
		}
		meta := &catalog.Metadata{Name: game.Name}
		if known.HasImage {
			return provider.ExactMatch(Name, nil, meta)
		}
		grids, err := c.Grids(ctx, game.ID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			return provider.Failure(Name, err)
		}
		covers := RankCovers(toCovers(grids), c.width, c.height)
		if len(covers) == 0 {
			c.logger.InfoContext(ctx, "exact match has no covers", logging.Int64("game_id", game.ID))
			return provider.ExactMatch(Name, nil, meta)
		}
		best := covers[0]
		return provider.ExactMatch(Name, &best, meta)
	}

	if len(games) == 0 {
		return provider.NotFound(Name)
	}
	if len(games) > maxSuggestions {
		games = games[:maxSuggestions]
	}
	candidates := make([]catalog.Candidate, 0, len(games))
	for _, game := range games {
		candidates = append(candidates, catalog.Candidate{
			ID:          game.ID,
			DisplayName: game.Name,
			LogoURL:     game.Logo,
		})
	}
	return provider.Suggestions(Name, candidates)
}

// FetchDetail lists the ranked covers for a game. SteamGridDB carries no year
// or description so metadata is always nil.
func (c *Client) FetchDetail(ctx context.Context, id int64) (provider.Detail, error) {
	grids, err := c.Grids(ctx, id)
	if err != nil {
		return provider.Detail{}, err
	}
	covers := RankCovers(toCovers(grids), c.width, c.height)
	if len(covers) > maxDetailCovers {
		covers = covers[:maxDetailCovers]
	}
	return provider.Detail{Provider: Name, Covers: covers}, nil
}

// Ping issues one authenticated search to confirm the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, "portal")
	return err
}

// Search calls the autocomplete endpoint. A 404 is treated as no hits.
func (c *Client) Search(ctx context.Context, query string) ([]Game, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "search", "query must not be empty", nil)
	}
	var payload envelope[Game]
	err := c.get(ctx, "search", "/search/autocomplete/"+url.PathEscape(query), nil, &payload)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Grids lists covers for a game filtered to the configured dimensions.
func (c *Client) Grids(ctx context.Context, gameID int64) ([]Grid, error) {
	params := url.Values{}
	params.Set("dimensions", fmt.Sprintf("%dx%d", c.width, c.height))
	var payload envelope[Grid]
	if err := c.get(ctx, "grids", "/grids/game/"+strconv.FormatInt(gameID, 10), params, &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, out any) error {
	if !c.Available() {
		return services.Wrap(services.ErrUnavailable, Name, operation, "api key not configured", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrTransient, Name, operation, "rate limiter", err)
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrExternal, Name, operation, "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return provider.RequestError(Name, operation, latency, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "steamgriddb response",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)
	if resp.StatusCode != http.StatusOK {
		return provider.StatusError(Name, operation, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, Name, operation, "decode response", err)
	}
	return nil
}

// RankCovers orders covers with the exact target size first, then by score
// descending. Covers missing a URL or thumbnail are dropped.
func RankCovers(covers []catalog.Cover, width, height int) []catalog.Cover {
	out := make([]catalog.Cover, 0, len(covers))
	for _, cover := range covers {
		if strings.TrimSpace(cover.URL) == "" || strings.TrimSpace(cover.ThumbURL) == "" {
			continue
		}
		out = append(out, cover)
	}
	target := func(cover catalog.Cover) int {
		if cover.Width == width && cover.Height == height {
			return 1
		}
		return 0
	}
	slices.SortStableFunc(out, func(a, b catalog.Cover) int {
		return cmp.Or(
			cmp.Compare(target(b), target(a)),
			cmp.Compare(b.Score, a.Score),
		)
	})
	return out
}

func toCovers(grids []Grid) []catalog.Cover {
	covers := make([]catalog.Cover, 0, len(grids))
	for _, grid := range grids {
		covers = append(covers, catalog.Cover{
			ID:       grid.ID,
			URL:      grid.URL,
			ThumbURL: grid.Thumb,
			Width:    grid.Width,
			Height:   grid.Height,
			Score:    grid.Score,
			Style:    grid.Style,
			Tags:     grid.Tags,
		})
	}
	return covers
}

func parseDimensions(value string) (int, int, bool) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(value)), "x")
	if !ok {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}
