package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDataset(); err != nil {
		return err
	}
	c.normalizePrompt()
	c.normalizeBackends()
	c.normalizeModels()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.WorkDir, defaultCacheFile)
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDataset() error {
	c.Dataset.Train = strings.TrimSpace(c.Dataset.Train)
	c.Dataset.Holdout = strings.TrimSpace(c.Dataset.Holdout)
	var err error
	if c.Dataset.Train != "" && !IsRemote(c.Dataset.Train) {
		if c.Dataset.Train, err = expandPath(c.Dataset.Train); err != nil {
			return fmt.Errorf("dataset.train: %w", err)
		}
	}
	if c.Dataset.Holdout != "" && !IsRemote(c.Dataset.Holdout) {
		if c.Dataset.Holdout, err = expandPath(c.Dataset.Holdout); err != nil {
			return fmt.Errorf("dataset.holdout: %w", err)
		}
	}
	c.Dataset.LabelsFile = strings.TrimSpace(c.Dataset.LabelsFile)
	if c.Dataset.LabelsFile != "" {
		if c.Dataset.LabelsFile, err = expandPath(c.Dataset.LabelsFile); err != nil {
			return fmt.Errorf("dataset.labels_file: %w", err)
		}
	}
	if c.Dataset.FetchTimeoutSeconds <= 0 {
		c.Dataset.FetchTimeoutSeconds = defaultFetchTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizePrompt() {
	c.Prompt.DefaultLabel = strings.TrimSpace(c.Prompt.DefaultLabel)
	if c.Prompt.DefaultLabel == "" {
		c.Prompt.DefaultLabel = defaultLabel
	}
	strategies := make([]string, 0, len(c.Prompt.Strategies))
	seen := make(map[string]struct{}, len(c.Prompt.Strategies))
	for _, s := range c.Prompt.Strategies {
		s = strings.ToLower(strings.TrimSpace(s))
		s = strings.ReplaceAll(s, "-", "_")
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		strategies = append(strategies, s)
	}
	if len(strategies) == 0 {
		strategies = append(strategies, defaultStrategies...)
	}
	c.Prompt.Strategies = strategies
}

func (c *Config) normalizeBackends() {
	if len(c.Backends) == 0 {
		c.Backends = defaultBackends()
	}
	for i := range c.Backends {
		b := &c.Backends[i]
		b.Name = strings.TrimSpace(b.Name)
		b.Kind = strings.ToLower(strings.TrimSpace(b.Kind))
		if b.Kind == "" {
			b.Kind = KindOpenAI
		}
		b.BaseURL = strings.TrimSpace(b.BaseURL)
		b.APIKeyEnv = strings.TrimSpace(b.APIKeyEnv)
		if b.APIKeyEnv == "" {
			b.APIKeyEnv = defaultAPIKeyEnv(b.Kind)
		}
		b.APIKey = strings.TrimSpace(b.APIKey)
		if b.APIKey == "" {
			if value, ok := os.LookupEnv(b.APIKeyEnv); ok {
				b.APIKey = strings.TrimSpace(value)
			} else if b.Kind == KindGemini {
				if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
					b.APIKey = strings.TrimSpace(value)
				}
			}
		}
		if b.TimeoutSeconds <= 0 {
			b.TimeoutSeconds = defaultBackendTimeout
		}
		if b.MaxTokens <= 0 {
			b.MaxTokens = defaultMaxTokens
		}
		b.Referer = strings.TrimSpace(b.Referer)
		b.Title = strings.TrimSpace(b.Title)
	}
}

func (c *Config) normalizeModels() {
	if len(c.Models) == 0 {
		c.Models = defaultModels()
	}
	for i := range c.Models {
		c.Models[i].ID = strings.TrimSpace(c.Models[i].ID)
		c.Models[i].Backend = strings.TrimSpace(c.Models[i].Backend)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
