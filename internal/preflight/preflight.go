package preflight

import (
	"context"
	"path/filepath"

	"curator/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory, publishing, and provider checks. pinger may
// be nil when no dispatch service could be built.
func RunAll(ctx context.Context, cfg *config.Config, pinger Pinger) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Database directory", filepath.Dir(cfg.Paths.Database)),
		CheckPublishing(cfg),
	}
	if pinger == nil {
		return append(results, Result{Name: "LLM", Detail: "dispatch service unavailable"})
	}
	return append(results, CheckLLM(ctx, pinger)...)
}
