// Package translate translates game descriptions through the MyMemory API.
// Translation is best effort: every failure returns the original text.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"coverfill/internal/config"
	"coverfill/internal/logging"
	"coverfill/internal/services"
)

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, text string) string
}

// Client calls the MyMemory translation endpoint.
type Client struct {
	baseURL    string
	source     string
	target     string
	maxChars   int
	minChars   int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter paces outgoing requests.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New constructs a client from translation settings.
func New(cfg config.Translation, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		source:     cfg.SourceLanguage,
		target:     cfg.TargetLanguage,
		maxChars:   cfg.MaxChars,
		minChars:   cfg.MinChars,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "translate")
	return c
}

// NewFromConfig returns a Client when translation is enabled and a Noop otherwise.
func NewFromConfig(cfg *config.Config, opts ...Option) Translator {
	if cfg == nil || !cfg.Translation.Enabled {
		return Noop{}
	}
	return New(cfg.Translation, opts...)
}

type response struct {
	ResponseData struct {
		TranslatedText string `json:"translatedText"`
	} `json:"responseData"`
	ResponseStatus json.Number `json:"responseStatus"`
}

// Translate returns text translated to the target language. Short texts are
// returned untouched and long texts are truncated before sending. Any failure
// yields the original text.
func (c *Client) Translate(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) < c.minChars {
		return text
	}
	if c.maxChars > 0 && len(runes) > c.maxChars {
		trimmed = string(runes[:c.maxChars])
	}
	translated, err := c.fetch(ctx, trimmed)
	if err != nil {
		c.logger.DebugContext(ctx, "translation failed; keeping original text", logging.Error(err))
		return text
	}
	return translated
}

func (c *Client) fetch(ctx context.Context, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	query := url.Values{}
	query.Set("q", text)
	query.Set("langpair", c.source+"|"+c.target)
	endpoint := c.baseURL + "/get?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "translate", "build request", "invalid endpoint", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "request", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternal, "translate", "request", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}
	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrExternal, "translate", "decode", "malformed response", err)
	}
	if status := payload.ResponseStatus.String(); status != "" && status != "200" {
		return "", services.Wrap(services.ErrExternal, "translate", "decode", "response status "+status, nil)
	}
	translated := strings.TrimSpace(payload.ResponseData.TranslatedText)
	if translated == "" {
		return "", services.Wrap(services.ErrExternal, "translate", "decode", "empty translation", nil)
	}
	return translated, nil
}

// Noop returns its input unchanged.
type Noop struct{}

func (Noop) Translate(_ context.Context, text string) string { return text }
