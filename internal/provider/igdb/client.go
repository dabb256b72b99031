// Package igdb implements the general game-metadata lookup backend. Requests
// authenticate with a Twitch client-credentials token that is cached until it
// expires and refreshed once when the API rejects it.
package igdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
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
const Name = "igdb"

const (
	searchLimit    = 10
	maxScreenshots = 10
	coverWidth     = 600
	coverHeight    = 900
	officialScore  = 100
	screenshotTop  = 90
)

// Image is a cover or screenshot reference.
type Image struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Game is one record from the games endpoint.
type Game struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Cover            *Image  `json:"cover,omitempty"`
	FirstReleaseDate int64   `json:"first_release_date,omitempty"`
	Summary          string  `json:"summary,omitempty"`
	Storyline        string  `json:"storyline,omitempty"`
	Screenshots      []Image `json:"screenshots,omitempty"`
}

// Year returns the UTC calendar year of the first release, or "".
func (g Game) Year() string {
	if g.FirstReleaseDate == 0 {
		return ""
	}
	return strconv.Itoa(time.Unix(g.FirstReleaseDate, 0).UTC().Year())
}

// Description prefers the summary and falls back to the storyline.
func (g Game) Description() string {
	if text := plainText(g.Summary); text != "" {
		return text
	}
	return plainText(g.Storyline)
}

// Client talks to the IGDB v4 API.
type Client struct {
	clientID   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *tokenSource
	logger     *slog.Logger
}

var _ provider.Backend = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client for API and token calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			c.tokens.httpClient = client
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

// WithClock overrides the clock used for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.tokens.now = now
		}
	}
}

// New creates an IGDB client. A client missing either credential is valid but
// reports itself unavailable.
func New(clientID, clientSecret, baseURL, tokenURL string, opts ...Option) *Client {
	httpClient := &http.Client{Timeout: 15 * time.Second}
	client := &Client{
		clientID:   strings.TrimSpace(clientID),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(4), 1),
		logger:     logging.NewNop(),
		tokens: &tokenSource{
			clientID:     strings.TrimSpace(clientID),
			clientSecret: strings.TrimSpace(clientSecret),
			tokenURL:     strings.TrimSpace(tokenURL),
			httpClient:   httpClient,
			now:          time.Now,
		},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Name() string { return Name }

func (c *Client) Available() bool {
	return c.clientID != "" && c.tokens.clientSecret != "" && c.baseURL != "" && c.tokens.tokenURL != ""
}

// Lookup searches by name. An exact match carries the official cover and the
// metadata fields the item is missing. An exact match without a cover, while
// the item has no image, is offered as a single suggestion so a human can pick
// a screenshot instead.
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
		meta := (&catalog.Metadata{
			Name:        game.Name,
			Year:        game.Year(),
			Description: game.Description(),
		}).Restrict(known)
		if known.HasImage {
			return provider.ExactMatch(Name, nil, meta)
		}
		if game.Cover == nil || strings.TrimSpace(game.Cover.URL) == "" {
			return provider.Suggestions(Name, []catalog.Candidate{toCandidate(game)})
		}
		cover := officialCover(*game.Cover)
		return provider.ExactMatch(Name, &cover, meta)
	}

	if len(games) == 0 {
		return provider.NotFound(Name)
	}
	candidates := make([]catalog.Candidate, 0, len(games))
	for _, game := range games {
		candidates = append(candidates, toCandidate(game))
	}
	return provider.Suggestions(Name, candidates)
}

// FetchDetail returns the official cover followed by up to ten screenshots,
// plus the game's metadata.
func (c *Client) FetchDetail(ctx context.Context, id int64) (provider.Detail, error) {
	body := fmt.Sprintf("fields name,cover.url,first_release_date,summary,storyline,screenshots.url; where id = %d;", id)
	var games []Game
	if err := c.query(ctx, "detail", body, &games); err != nil {
		return provider.Detail{}, err
	}
	if len(games) == 0 {
		return provider.Detail{}, services.Wrap(services.ErrNotFound, Name, "detail", fmt.Sprintf("game %d not found", id), nil)
	}
	game := games[0]

	covers := make([]catalog.Cover, 0, 1+maxScreenshots)
	if game.Cover != nil && strings.TrimSpace(game.Cover.URL) != "" {
		covers = append(covers, officialCover(*game.Cover))
	}
	for i, shot := range game.Screenshots {
		if i >= maxScreenshots {
			break
		}
		if strings.TrimSpace(shot.URL) == "" {
			continue
		}
		imageURL := upgradeImageURL(shot.URL)
		covers = append(covers, catalog.Cover{
			ID:       shot.ID,
			URL:      imageURL,
			ThumbURL: imageURL,
			Width:    coverWidth,
			Height:   coverHeight,
			Score:    screenshotTop - i,
			Style:    "screenshot",
			Tags:     []string{Name, "screenshot"},
		})
	}
	return provider.Detail{
		Provider: Name,
		Covers:   covers,
		Metadata: &catalog.Metadata{Name: game.Name, Year: game.Year(), Description: game.Description()},
	}, nil
}

// Ping issues one authenticated search to confirm the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Search(ctx, "portal")
	return err
}

// Search runs a full-text game search.
func (c *Client) Search(ctx context.Context, query string) ([]Game, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, Name, "search", "query must not be empty", nil)
	}
	body := fmt.Sprintf("search %s; fields name,cover.url,first_release_date,summary,storyline; limit %d;", quote(query), searchLimit)
	var games []Game
	if err := c.query(ctx, "search", body, &games); err != nil {
		return nil, err
	}
	return games, nil
}

func (c *Client) query(ctx context.Context, operation, body string, out any) error {
	if !c.Available() {
		return services.Wrap(services.ErrUnavailable, Name, operation, "client credentials not configured", nil)
	}
	err := c.post(ctx, operation, body, out)
	var unauthorized *unauthorizedError
	if errors.As(err, &unauthorized) {
		c.logger.InfoContext(ctx, "igdb token rejected; refreshing", logging.String("operation", operation))
		c.tokens.Invalidate()
		err = c.post(ctx, operation, body, out)
		if errors.As(err, &unauthorized) {
			return unauthorized.cause
		}
	}
	return err
}

type unauthorizedError struct {
	cause error
}

func (e *unauthorizedError) Error() string { return e.cause.Error() }

func (e *unauthorizedError) Unwrap() error { return e.cause }

func (c *Client) post(ctx context.Context, operation, body string, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return services.Wrap(services.ErrTransient, Name, operation, "rate limiter", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/games", strings.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrExternal, Name, operation, "build request", err)
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return provider.RequestError(Name, operation, latency, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "igdb response",
		logging.String("operation", operation),
		logging.Int("status", resp.StatusCode),
		logging.Duration("latency", latency),
	)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &unauthorizedError{cause: provider.StatusError(Name, operation, resp.StatusCode, latency)}
	case resp.StatusCode != http.StatusOK:
		return provider.StatusError(Name, operation, resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, Name, operation, "decode response", err)
	}
	return nil
}

func officialCover(image Image) catalog.Cover {
	imageURL := upgradeImageURL(image.URL)
	return catalog.Cover{
		ID:       image.ID,
		URL:      imageURL,
		ThumbURL: imageURL,
		Width:    coverWidth,
		Height:   coverHeight,
		Score:    officialScore,
		Style:    "official",
		Tags:     []string{Name, "cover"},
	}
}

func toCandidate(game Game) catalog.Candidate {
	candidate := catalog.Candidate{
		ID:          game.ID,
		DisplayName: game.Name,
		Year:        game.Year(),
		Description: game.Description(),
		Provider:    Name,
	}
	if game.Cover != nil && game.Cover.URL != "" {
		candidate.LogoURL = absoluteURL(game.Cover.URL)
	}
	return candidate
}

// upgradeImageURL swaps the thumbnail size token for the large cover size and
// makes protocol-relative URLs absolute.
func upgradeImageURL(raw string) string {
	return absoluteURL(strings.Replace(strings.TrimSpace(raw), "t_thumb", "t_cover_big", 1))
}

func absoluteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// quote renders s as an apicalypse string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
