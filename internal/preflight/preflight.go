package preflight

import (
	"context"

	"coverfill/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// Probe is a lookup backend that can verify its credentials.
type Probe interface {
	Name() string
	Available() bool
	Ping(ctx context.Context) error
}

// RunAll checks the state and log directories, then each probe in order.
func RunAll(ctx context.Context, cfg *config.Config, probes []Probe) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	for _, probe := range probes {
		results = append(results, CheckBackend(ctx, probe, cfg.ProviderTimeout()))
	}
	return results
}

// Failed reports whether any non-skipped check failed.
func Failed(results []Result) bool {
	for _, result := range results {
		if !result.Passed && !result.Skipped {
			return true
		}
	}
	return false
}
