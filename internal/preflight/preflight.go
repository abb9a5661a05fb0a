package preflight

import (
	"context"
	"net/http"
	"strings"

	"tagbench/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Options tunes RunAll.
type Options struct {
	// Ping issues one health request per configured backend.
	Ping       bool
	HTTPClient *http.Client
}

// RunAll executes every applicable preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	if cfg.Paths.LogDir != "" && cfg.Paths.LogDir != cfg.Paths.WorkDir {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckDataset(ctx, "Training set", cfg.Dataset.Train, opts.HTTPClient))
	results = append(results, CheckDataset(ctx, "Holdout set", cfg.Dataset.Holdout, opts.HTTPClient))
	if strings.TrimSpace(cfg.Dataset.LabelsFile) != "" {
		results = append(results, CheckLabelManifest(cfg.Dataset.LabelsFile))
	}

	for _, b := range usedBackends(cfg) {
		cred := CheckCredentials(b)
		results = append(results, cred)
		if opts.Ping && cred.Passed {
			results = append(results, CheckBackend(ctx, cfg, b))
		}
	}
	return results
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

// usedBackends returns the backends referenced by at least one model, in
// declaration order.
func usedBackends(cfg *config.Config) []config.Backend {
	used := make(map[string]bool, len(cfg.Models))
	for _, m := range cfg.Models {
		used[m.Backend] = true
	}
	var out []config.Backend
	for _, b := range cfg.Backends {
		if used[b.Name] {
			out = append(out, b)
		}
	}
	return out
}
