package preflight

import (
	"context"

	"dengbej/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Remote checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := DirectoryChecks(cfg)

	if cfg.Pipeline.Mode == config.ModeHosted {
		results = append(results, CheckOpenAI(ctx, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL))
		results = append(results, CheckKurdishTTSFromConfig(cfg))
	}

	if cfg.Storage.Enabled {
		results = append(results, CheckStorage(ctx, cfg.Storage))
	}

	return results
}

// DirectoryChecks verifies every directory the server writes to.
func DirectoryChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Scratch directory", cfg.Paths.ScratchDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}
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
