package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"coverfill/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateProviders(); err != nil {
		return err
	}
	if err := c.validateEndpoints(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateProviders() error {
	if len(c.Providers.Order) == 0 {
		return errors.New("providers.order must name at least one provider")
	}
	for _, name := range c.Providers.Order {
		switch name {
		case ProviderSteamGridDB, ProviderIGDB:
		default:
			return fmt.Errorf("providers.order: unknown provider %q (expected %s or %s)", name, ProviderSteamGridDB, ProviderIGDB)
		}
	}
	if c.Providers.SuggestionLimit < minSuggestionLimit || c.Providers.SuggestionLimit > maxSuggestionLimit {
		return fmt.Errorf("providers.suggestion_limit must be between %d and %d", minSuggestionLimit, maxSuggestionLimit)
	}
	if c.SteamGridDB.RequestsPerSecond < 0 {
		return errors.New("steamgriddb.requests_per_second must be >= 0")
	}
	if c.IGDB.RequestsPerSecond < 0 {
		return errors.New("igdb.requests_per_second must be >= 0")
	}
	if !strings.Contains(c.SteamGridDB.Dimensions, "x") {
		return fmt.Errorf("steamgriddb.dimensions must look like WIDTHxHEIGHT, got %q", c.SteamGridDB.Dimensions)
	}
	return nil
}

func (c *Config) validateEndpoints() error {
	for key, value := range map[string]string{
		"steamgriddb.base_url": c.SteamGridDB.BaseURL,
		"igdb.base_url":        c.IGDB.BaseURL,
		"igdb.token_url":       c.IGDB.TokenURL,
		"translation.base_url": c.Translation.BaseURL,
	} {
		if err := validateHTTPURL(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateTimings() error {
	if err := ensurePositiveMap(map[string]int{
		"providers.request_timeout":     c.Providers.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Engine.StepDelayMillis < 0 {
		return errors.New("engine.step_delay_ms must be >= 0")
	}
	if c.Notifications.MessageDelayMillis < 0 {
		return errors.New("notifications.message_delay_ms must be >= 0")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if !c.Translation.Enabled {
		return nil
	}
	if _, err := language.Code(c.Translation.SourceLanguage); err != nil {
		return fmt.Errorf("translation.source_language: %w", err)
	}
	if _, err := language.Code(c.Translation.TargetLanguage); err != nil {
		return fmt.Errorf("translation.target_language: %w", err)
	}
	if c.Translation.SourceLanguage == c.Translation.TargetLanguage {
		return errors.New("translation.source_language and translation.target_language must differ when translation.enabled is true")
	}
	if c.Translation.MinChars >= c.Translation.MaxChars {
		return errors.New("translation.min_chars must be less than translation.max_chars")
	}
	return nil
}

func (c *Config) validateLogging() error {
	for component, level := range c.Logging.ComponentOverrides {
		switch level {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("logging.component_overrides.%s: unknown level %q", component, level)
		}
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
