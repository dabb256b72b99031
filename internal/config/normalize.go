package config

import (
	"fmt"
	"os"
	"strings"

	"coverfill/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSteamGridDB()
	c.normalizeIGDB()
	c.normalizeProviders()
	c.normalizeTranslation()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSteamGridDB() {
	c.SteamGridDB.APIKey = strings.TrimSpace(c.SteamGridDB.APIKey)
	if c.SteamGridDB.APIKey == "" {
		if value, ok := os.LookupEnv("STEAMGRIDDB_API_KEY"); ok {
			c.SteamGridDB.APIKey = strings.TrimSpace(value)
		}
	}
	c.SteamGridDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.SteamGridDB.BaseURL), "/")
	if c.SteamGridDB.BaseURL == "" {
		c.SteamGridDB.BaseURL = defaultSteamGridDBBaseURL
	}
	c.SteamGridDB.Dimensions = strings.ToLower(strings.TrimSpace(c.SteamGridDB.Dimensions))
	if c.SteamGridDB.Dimensions == "" {
		c.SteamGridDB.Dimensions = defaultSteamGridDBDimensions
	}
	if c.SteamGridDB.RequestsPerSecond == 0 {
		c.SteamGridDB.RequestsPerSecond = defaultSteamGridDBRate
	}
}

func (c *Config) normalizeIGDB() {
	c.IGDB.ClientID = strings.TrimSpace(c.IGDB.ClientID)
	if c.IGDB.ClientID == "" {
		if value, ok := os.LookupEnv("IGDB_CLIENT_ID"); ok {
			c.IGDB.ClientID = strings.TrimSpace(value)
		}
	}
	c.IGDB.ClientSecret = strings.TrimSpace(c.IGDB.ClientSecret)
	if c.IGDB.ClientSecret == "" {
		if value, ok := os.LookupEnv("IGDB_CLIENT_SECRET"); ok {
			c.IGDB.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.IGDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.IGDB.BaseURL), "/")
	if c.IGDB.BaseURL == "" {
		c.IGDB.BaseURL = defaultIGDBBaseURL
	}
	c.IGDB.TokenURL = strings.TrimSpace(c.IGDB.TokenURL)
	if c.IGDB.TokenURL == "" {
		c.IGDB.TokenURL = defaultIGDBTokenURL
	}
	if c.IGDB.RequestsPerSecond == 0 {
		c.IGDB.RequestsPerSecond = defaultIGDBRate
	}
}

func (c *Config) normalizeProviders() {
	if len(c.Providers.Order) == 0 {
		c.Providers.Order = []string{ProviderSteamGridDB, ProviderIGDB}
	} else {
		order := make([]string, 0, len(c.Providers.Order))
		seen := make(map[string]struct{}, len(c.Providers.Order))
		for _, name := range c.Providers.Order {
			normalized := strings.ToLower(strings.TrimSpace(name))
			if normalized == "" {
				continue
			}
			if _, exists := seen[normalized]; exists {
				continue
			}
			seen[normalized] = struct{}{}
			order = append(order, normalized)
		}
		c.Providers.Order = order
	}
	if c.Providers.SuggestionLimit == 0 {
		c.Providers.SuggestionLimit = defaultSuggestionLimit
	}
	if c.Providers.RequestTimeout == 0 {
		c.Providers.RequestTimeout = defaultProviderTimeout
	}
}

// normalizeLanguage canonicalizes recognized values and leaves the rest for
// Validate to report.
func normalizeLanguage(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if code, err := language.Code(value); err == nil {
		return code
	}
	return value
}

func (c *Config) normalizeTranslation() {
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	c.Translation.SourceLanguage = normalizeLanguage(c.Translation.SourceLanguage, defaultTranslationSource)
	c.Translation.TargetLanguage = normalizeLanguage(c.Translation.TargetLanguage, defaultTranslationTarget)
	if c.Translation.MaxChars <= 0 {
		c.Translation.MaxChars = defaultTranslationMaxChars
	}
	if c.Translation.MinChars < 0 {
		c.Translation.MinChars = 0
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.ComponentOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.ComponentOverrides))
		for component, level := range c.Logging.ComponentOverrides {
			key := strings.ToLower(strings.TrimSpace(component))
			if key == "" {
				continue
			}
			overrides[key] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.ComponentOverrides = overrides
	}
}
