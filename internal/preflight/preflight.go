package preflight

import (
	"context"

	"lunchscraper/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckWritableTarget("Data directory", cfg.Paths.DataDir),
		CheckWritableTarget("State directory", cfg.Paths.StateDir),
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckWritableTarget("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckUpstreamFromConfig(ctx, cfg))
	results = append(results, CheckNotificationsFromConfig(ctx, cfg))
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
