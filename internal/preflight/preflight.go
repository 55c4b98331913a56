package preflight

import (
	"context"

	"dubsync/internal/config"
	"dubsync/internal/deps"
)

// Result reports the outcome of a single preflight check. Optional failures
// are reported but do not block startup.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
	if cfg.Captions.Dir != "" {
		r := CheckDirectoryAccess("Caption directory", cfg.Captions.Dir)
		r.Optional = cfg.Captions.URLTemplate != ""
		results = append(results, r)
	}

	for _, status := range deps.CheckBinaries(deps.NarrationRequirements(cfg.Narration)) {
		results = append(results, fromDependency(status))
	}

	if cfg.Translation.APIKey != "" {
		results = append(results, CheckLLM(ctx, "Primary translator", cfg.Translation))
	}
	if cfg.Translation.FallbackURL != "" {
		r := CheckDeepLX(ctx, "Fallback translator", cfg.Translation.FallbackURL)
		r.Optional = true
		results = append(results, r)
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

func fromDependency(status deps.Status) Result {
	detail := status.Detail
	if status.Available {
		detail = status.Command
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}
