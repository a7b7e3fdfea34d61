package preflight

import (
	"context"
	"strings"

	"adtrim/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunLocal executes the checks that need no network access.
func RunLocal(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	if strings.TrimSpace(cfg.Paths.CacheDir) != "" {
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	}
	if strings.TrimSpace(cfg.Watch.Directory) != "" {
		results = append(results, CheckDirectoryAccess("Watch directory", cfg.Watch.Directory))
	}
	results = append(results, CheckNotificationClip(cfg.Paths.NotificationClip))
	results = append(results, CheckTranscription(cfg))
	return results
}

// RunAll executes every preflight check, including LLM reachability.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunLocal(cfg)
	return append(results, CheckLLM(ctx, "Classification LLM", cfg.GetLLM()))
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
