package main

import (
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"coverfill/internal/config"
	"coverfill/internal/logging"
	"coverfill/internal/preflight"
	"coverfill/internal/provider"
	"coverfill/internal/provider/igdb"
	"coverfill/internal/provider/steamgriddb"
)

// buildGateway wires the configured backends into a fallback chain in
// providers.order.
func buildGateway(cfg *config.Config, logger *slog.Logger) *provider.Chain {
	return provider.NewChain(buildBackends(cfg, logger),
		provider.WithSuggestionLimit(cfg.Providers.SuggestionLimit),
		provider.WithLogger(logging.ComponentLevel(logger, "provider", cfg.Logging.ComponentOverrides)),
	)
}

// probeBackends returns the configured backends as preflight probes.
func probeBackends(cfg *config.Config, logger *slog.Logger) []preflight.Probe {
	backends := buildBackends(cfg, logger)
	probes := make([]preflight.Probe, 0, len(backends))
	for _, backend := range backends {
		if probe, ok := backend.(preflight.Probe); ok {
			probes = append(probes, probe)
		}
	}
	return probes
}

func buildBackends(cfg *config.Config, logger *slog.Logger) []provider.Backend {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout()}
	overrides := cfg.Logging.ComponentOverrides

	backends := make([]provider.Backend, 0, len(cfg.Providers.Order))
	for _, name := range cfg.Providers.Order {
		switch name {
		case config.ProviderSteamGridDB:
			backends = append(backends, steamgriddb.New(cfg.SteamGridDB.APIKey, cfg.SteamGridDB.BaseURL,
				steamgriddb.WithHTTPClient(httpClient),
				steamgriddb.WithLimiter(limiterFor(cfg.SteamGridDB.RequestsPerSecond)),
				steamgriddb.WithDimensions(cfg.SteamGridDB.Dimensions),
				steamgriddb.WithLogger(logging.ComponentLevel(logger, steamgriddb.Name, overrides)),
			))
		case config.ProviderIGDB:
			backends = append(backends, igdb.New(cfg.IGDB.ClientID, cfg.IGDB.ClientSecret, cfg.IGDB.BaseURL, cfg.IGDB.TokenURL,
				igdb.WithHTTPClient(httpClient),
				igdb.WithLimiter(limiterFor(cfg.IGDB.RequestsPerSecond)),
				igdb.WithLogger(logging.ComponentLevel(logger, igdb.Name, overrides)),
			))
		}
	}
	return backends
}

func limiterFor(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}
