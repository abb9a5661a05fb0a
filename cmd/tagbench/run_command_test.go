package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"tagbench/internal/metrics"
	"tagbench/internal/services"
	"tagbench/internal/testsupport"
)

func TestRunTableOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--no-progress", "--classes"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, want := range []string{
		"fake-model_zero_shot",
		"fake-model_few_shot",
		"1.000",
		"Best F1:",
		"Tokens: 300 prompt, 12 completion",
		"natural-language-processing",
	} {
		requireContains(t, out, want)
	}
	if got := env.server.Calls(); got != 6 {
		t.Fatalf("expected 6 completion calls (3 records x 2 strategies), got %d", got)
	}
}

func TestRunJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "--format", "json", "--strategy", "zero-shot", "--model", "fake-model"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	var payload struct {
		Results map[string]map[string]metrics.Report `json:"results"`
		Summary struct {
			RunID   string `json:"run_id"`
			Holdout int    `json:"holdout_records"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	rep, ok := payload.Results["zero_shot"]["fake-model"]
	if !ok {
		t.Fatalf("missing zero_shot/fake-model in %v", payload.Results)
	}
	if rep.F1 != 1 || rep.Precision != 1 || rep.Recall != 1 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if _, ok := payload.Results["few_shot"]; ok {
		t.Fatal("few_shot should not run when --strategy selects zero_shot")
	}
	if payload.Summary.RunID == "" || payload.Summary.Holdout != 3 {
		t.Fatalf("unexpected summary %+v", payload.Summary)
	}
}

func TestRunMarkdownOutputHonorsSamples(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run", "-f", "markdown", "-s", "zero_shot", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, strings.ToLower(out), "| run |")
	requireContains(t, out, "fake-model_zero_shot")
	if got := env.server.Calls(); got != 2 {
		t.Fatalf("expected 2 completion calls, got %d", got)
	}
}

func TestRunRejectsUnknownModelAndFormat(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run", "--model", "nope"}, env.configPath)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown model, got %v", err)
	}
	_, _, err = runCLI(t, []string{"run", "--format", "yaml"}, env.configPath)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown format, got %v", err)
	}
	if env.server.Calls() != 0 {
		t.Fatalf("no requests should be sent, got %d", env.server.Calls())
	}
}

func TestRunWithCacheReplaysCompletions(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCache())

	if _, _, err := runCLI(t, []string{"run", "-f", "json", "-s", "zero_shot"}, env.configPath); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, _, err := runCLI(t, []string{"run", "-f", "json", "-s", "zero_shot"}, env.configPath); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := env.server.Calls(); got != 3 {
		t.Fatalf("expected cached second run, got %d calls", got)
	}

	out, _, err := runCLI(t, []string{"cache", "stats"}, env.configPath)
	if err != nil {
		t.Fatalf("cache stats: %v", err)
	}
	requireContains(t, out, "Entries: 3")
	requireContains(t, out, "Hits: 3")
	requireContains(t, out, "fake-model")

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Removed 3 cached completions")
}
