package preflight

import (
	"context"
	"path/filepath"

	"foodlog/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Note directory", filepath.Dir(cfg.Paths.NotePath)),
		CheckNote("Note", cfg.Paths.NotePath),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFieldPaths(cfg.Estimator.Fields),
	}
	return append(results, CheckEstimator(ctx, cfg))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
