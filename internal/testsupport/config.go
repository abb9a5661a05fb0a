package testsupport

import (
	"path/filepath"
	"testing"

	"tagbench/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The dataset locations point at fixture CSVs written under the temp dir and a
// single "fake" backend serves the model "fake-model".
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Cache.Path = filepath.Join(base, "work", "completions.db")
	cfgVal.Dataset.Train = filepath.Join(base, "data", "dataset.csv")
	cfgVal.Dataset.Holdout = filepath.Join(base, "data", "holdout.csv")
	cfgVal.Prompt.Strategies = []string{config.StrategyZeroShot, config.StrategyFewShot}
	cfgVal.Retry.CooldownSeconds = 0
	cfgVal.Backends = []config.Backend{{Name: "fake", Kind: config.KindOpenAI, APIKey: "test", BaseURL: "http://127.0.0.1:0"}}
	cfgVal.Models = []config.Model{{ID: "fake-model", Backend: "fake"}}

	WriteDataset(t, cfgVal.Dataset.Train, TrainRecords())
	WriteDataset(t, cfgVal.Dataset.Holdout, HoldoutRecords())

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCache enables the completion cache on the test config.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithBackendURL points the fake backend at url, typically an httptest server.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		for i := range b.cfg.Backends {
			b.cfg.Backends[i].BaseURL = url
		}
	}
}

// WithoutAPIKey clears every backend credential.
func WithoutAPIKey() ConfigOption {
	return func(b *configBuilder) {
		for i := range b.cfg.Backends {
			b.cfg.Backends[i].APIKey = ""
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
