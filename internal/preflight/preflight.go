package preflight

import (
	"context"
	"sort"

	"adrescue/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Catalog root", cfg.Paths.CatalogRoot),
		CheckFile("Feed export", cfg.Feed.ExportPath),
		CheckBinary("Composer binary", cfg.Composer.Binary),
		CheckDiskSpace("Work disk space", cfg.Paths.WorkDir, cfg.Workflow.MinFreeDiskGiB),
	}

	tags := make([]string, 0, len(cfg.Channels))
	for tag := range cfg.Channels {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		results = append(results, CheckCredential(cfg, tag, cfg.Channels[tag]))
	}

	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// Failures returns the subset of results that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
