package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// SteamGridDB contains configuration for the curated cover-art index.
type SteamGridDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	Dimensions        string  `toml:"dimensions"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// IGDB contains configuration for the game metadata index and its Twitch
// client-credentials login.
type IGDB struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	BaseURL           string  `toml:"base_url"`
	TokenURL          string  `toml:"token_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Providers controls the lookup fallback chain.
type Providers struct {
	Order           []string `toml:"order"`
	SuggestionLimit int      `toml:"suggestion_limit"`
	RequestTimeout  int      `toml:"request_timeout"`
}

// Engine contains enrichment loop pacing.
type Engine struct {
	StepDelayMillis int `toml:"step_delay_ms"`
}

// Translation contains configuration for description translation.
type Translation struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	SourceLanguage string `toml:"source_language"`
	TargetLanguage string `toml:"target_language"`
	MaxChars       int    `toml:"max_chars"`
	MinChars       int    `toml:"min_chars"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	MessageDelayMillis int    `toml:"message_delay_ms"`
	Items              bool   `toml:"items"`
	RunSummary         bool   `toml:"run_summary"`
	Errors             bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format             string            `toml:"format"`
	Level              string            `toml:"level"`
	RetentionDays      int               `toml:"retention_days"`
	ComponentOverrides map[string]string `toml:"component_overrides"`
}

// Config encapsulates all configuration values for coverfill.
//
// Configuration sections by subsystem:
//   - Paths: run state and log directories
//   - SteamGridDB: cover-art lookups
//   - IGDB: metadata lookups via Twitch credentials
//   - Providers: fallback order and suggestion limits
//   - Engine: pacing between lookups
//   - Translation: optional description translation
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	SteamGridDB   SteamGridDB   `toml:"steamgriddb"`
	IGDB          IGDB          `toml:"igdb"`
	Providers     Providers     `toml:"providers"`
	Engine        Engine        `toml:"engine"`
	Translation   Translation   `toml:"translation"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("coverfill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the location of the run checkpoint database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.StateDir, "runs.db")
}

// LockPath returns the lock file guarding the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "coverfill.lock")
}

// StepDelay returns the minimum delay between engine steps.
func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Engine.StepDelayMillis) * time.Millisecond
}

// ProviderTimeout returns the HTTP timeout used by lookup backends.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Providers.RequestTimeout) * time.Second
}

// MessageDelay returns the spacing between consecutive notifications.
func (c *Config) MessageDelay() time.Duration {
	return time.Duration(c.Notifications.MessageDelayMillis) * time.Millisecond
}

// SteamGridDBConfigured reports whether the cover-art backend has credentials.
func (c *Config) SteamGridDBConfigured() bool {
	return strings.TrimSpace(c.SteamGridDB.APIKey) != ""
}

// IGDBConfigured reports whether the metadata backend has credentials.
func (c *Config) IGDBConfigured() bool {
	return strings.TrimSpace(c.IGDB.ClientID) != "" && strings.TrimSpace(c.IGDB.ClientSecret) != ""
}

// RequireProvider returns an error when no lookup backend can be used.
func (c *Config) RequireProvider() error {
	if c.SteamGridDBConfigured() || c.IGDBConfigured() {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("no lookup provider configured. Set STEAMGRIDDB_API_KEY or IGDB_CLIENT_ID/IGDB_CLIENT_SECRET, or edit %s (create with 'coverfill config init')", defaultPath)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
