package testsupport

import (
	"path/filepath"
	"testing"

	"coverfill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Pacing is disabled and both providers carry dummy credentials pointed at
// unroutable endpoints; tests override the base URLs with httptest servers.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.SteamGridDB.APIKey = "test"
	cfgVal.IGDB.ClientID = "test-client"
	cfgVal.IGDB.ClientSecret = "test-secret"
	cfgVal.Engine.StepDelayMillis = 0
	cfgVal.Notifications.MessageDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSteamGridDB points the cover-art backend at baseURL.
func WithSteamGridDB(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SteamGridDB.BaseURL = baseURL
	}
}

// WithIGDB points the metadata backend and its token endpoint at baseURL.
func WithIGDB(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.IGDB.BaseURL = baseURL
		b.cfg.IGDB.TokenURL = baseURL + "/oauth2/token"
	}
}

// WithNtfyTopic enables notifications against topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithoutProviders clears all provider credentials.
func WithoutProviders() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.SteamGridDB.APIKey = ""
		b.cfg.IGDB.ClientID = ""
		b.cfg.IGDB.ClientSecret = ""
	}
}
