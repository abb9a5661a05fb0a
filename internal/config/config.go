package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working and log directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Dataset describes where labeled records come from and how they are sampled.
type Dataset struct {
	Train               string  `toml:"train"`
	Holdout             string  `toml:"holdout"`
	NumSamples          int     `toml:"num_samples"`
	ShuffleSeed         int64   `toml:"shuffle_seed"`
	TestSize            float64 `toml:"test_size"`
	LabelsFile          string  `toml:"labels_file"`
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"`
}

// Prompt contains prompt construction settings shared by every run.
type Prompt struct {
	ExamplesPerLabel int      `toml:"examples_per_label"`
	DefaultLabel     string   `toml:"default_label"`
	Strategies       []string `toml:"strategies"`
	CleanText        bool     `toml:"clean_text"`
}

// Retry controls how transient backend failures are retried per record.
type Retry struct {
	// MaxAttempts bounds attempts per record. Zero retries forever.
	MaxAttempts     int     `toml:"max_attempts"`
	CooldownSeconds float64 `toml:"cooldown_seconds"`
	Multiplier      float64 `toml:"multiplier"`
	MaxDelaySeconds float64 `toml:"max_delay_seconds"`
	Jitter          float64 `toml:"jitter"`
}

// Cache contains configuration for the completion replay cache.
type Cache struct {
	Enabled bool   `toml:"enabled"` // Default: false
	Path    string `toml:"path"`    // Default: <work_dir>/completions.db
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Backend describes one chat-completion provider.
type Backend struct {
	Name           string  `toml:"name"`
	Kind           string  `toml:"kind"`
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	APIKeyEnv      string  `toml:"api_key_env"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
}

// Model binds a model identifier to the backend that serves it.
type Model struct {
	ID      string `toml:"id"`
	Backend string `toml:"backend"`
}

// Config encapsulates all configuration values for tagbench.
//
// Configuration sections by subsystem:
//   - Paths: working directory (lock file, cache) and log directory
//   - Dataset: training/holdout locations, sampling, and label manifest
//   - Prompt: few-shot example count, fallback label, strategies
//   - Retry: per-record retry policy for transient backend failures
//   - Cache: optional completion replay cache
//   - Logging: log format and level
//   - Backends/Models: providers and the models routed to them
type Config struct {
	Paths    Paths     `toml:"paths"`
	Dataset  Dataset   `toml:"dataset"`
	Prompt   Prompt    `toml:"prompt"`
	Retry    Retry     `toml:"retry"`
	Cache    Cache     `toml:"cache"`
	Logging  Logging   `toml:"logging"`
	Backends []Backend `toml:"backends"`
	Models   []Model   `toml:"models"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv("TAGBENCH_CONFIG"); ok && strings.TrimSpace(value) != "" {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tagbench.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Cache.Enabled {
		if err := os.MkdirAll(filepath.Dir(c.Cache.Path), 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	return nil
}

// LockPath returns the run lock file inside the work directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "tagbench.lock")
}

// FetchTimeout returns the dataset download timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Dataset.FetchTimeoutSeconds) * time.Second
}

// Backend returns the backend with the given name.
func (c *Config) Backend(name string) (Backend, bool) {
	for _, b := range c.Backends {
		if b.Name == name {
			return b, true
		}
	}
	return Backend{}, false
}

// BackendForModel resolves the backend configured to serve model id.
func (c *Config) BackendForModel(id string) (Backend, error) {
	for _, m := range c.Models {
		if m.ID != id {
			continue
		}
		b, ok := c.Backend(m.Backend)
		if !ok {
			return Backend{}, fmt.Errorf("model %q references unknown backend %q", id, m.Backend)
		}
		return b, nil
	}
	return Backend{}, fmt.Errorf("model %q is not configured", id)
}

// ModelIDs returns configured model identifiers in declaration order.
func (c *Config) ModelIDs() []string {
	ids := make([]string, 0, len(c.Models))
	for _, m := range c.Models {
		ids = append(ids, m.ID)
	}
	return ids
}

// Timeout returns the per-request timeout for the backend.
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Cooldown returns the base retry delay.
func (r Retry) Cooldown() time.Duration {
	return secondsToDuration(r.CooldownSeconds)
}

// MaxDelay returns the retry delay ceiling.
func (r Retry) MaxDelay() time.Duration {
	return secondsToDuration(r.MaxDelaySeconds)
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// IsRemote reports whether a dataset location is fetched over HTTP.
func IsRemote(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML with secrets redacted.
func (c *Config) Encode() ([]byte, error) {
	clone := *c
	clone.Backends = make([]Backend, len(c.Backends))
	for i, b := range c.Backends {
		if b.APIKey != "" {
			b.APIKey = "<redacted>"
		}
		clone.Backends[i] = b
	}
	return toml.Marshal(clone)
}
