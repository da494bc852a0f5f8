package preflight

import (
	"context"

	"sarchain/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Advisory marks checks whose failure does not block a run.
	Advisory bool
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckOutputDir("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFile("DEM file", cfg.Paths.DEMFile))
	results = append(results, CheckFile("Unwrap graph", cfg.Paths.GraphFile))
	results = append(results, CheckInputs(cfg.Inputs)...)

	discovery := CheckDirectoryAccess("Discovery directory", cfg.Paths.DiscoveryDir)
	discovery.Advisory = true
	results = append(results, discovery)

	for _, status := range CheckSystemDeps(ctx, cfg) {
		result := Result{Name: status.Name, Passed: status.Available, Advisory: status.Optional}
		if status.Available {
			result.Detail = status.Path
		} else {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}
	return results
}

// Blocking returns failed checks that are not advisory.
func Blocking(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Advisory {
			failed = append(failed, r)
		}
	}
	return failed
}
