package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Backend credentials are not
// checked here so that offline commands work without keys; see preflight.
func (c *Config) Validate() error {
	if err := c.validateDataset(); err != nil {
		return err
	}
	if err := c.validatePrompt(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDataset() error {
	if c.Dataset.Train == "" {
		return errors.New("dataset.train must be set")
	}
	if c.Dataset.Holdout == "" {
		return errors.New("dataset.holdout must be set")
	}
	if c.Dataset.NumSamples < 0 {
		return errors.New("dataset.num_samples must be >= 0")
	}
	if c.Dataset.TestSize <= 0 || c.Dataset.TestSize >= 1 {
		return errors.New("dataset.test_size must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validatePrompt() error {
	if c.Prompt.ExamplesPerLabel < 0 {
		return errors.New("prompt.examples_per_label must be >= 0")
	}
	if d := c.Prompt.DefaultLabel; len(d) >= 2 && d[0] == d[len(d)-1] && (d[0] == '\'' || d[0] == '"') {
		return fmt.Errorf("prompt.default_label %s must not be wrapped in quotes", d)
	}
	for _, s := range c.Prompt.Strategies {
		switch s {
		case StrategyZeroShot, StrategyFewShot:
		default:
			return fmt.Errorf("prompt.strategies: unsupported strategy %q (want %s or %s)", s, StrategyZeroShot, StrategyFewShot)
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := c.Retry
	if r.MaxAttempts < 0 {
		return errors.New("retry.max_attempts must be >= 0 (0 retries forever)")
	}
	if r.CooldownSeconds < 0 {
		return errors.New("retry.cooldown_seconds must be >= 0")
	}
	if r.Multiplier < 1 {
		return errors.New("retry.multiplier must be >= 1")
	}
	if r.MaxDelaySeconds < 0 {
		return errors.New("retry.max_delay_seconds must be >= 0")
	}
	if r.MaxDelaySeconds == 0 && r.Multiplier > 1 {
		return errors.New("retry.max_delay_seconds must be > 0 when retry.multiplier > 1")
	}
	if r.Jitter < 0 || r.Jitter >= 1 {
		return errors.New("retry.jitter must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateBackends() error {
	seen := make(map[string]struct{}, len(c.Backends))
	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("backends[%d].name must be set", i)
		}
		if _, ok := seen[b.Name]; ok {
			return fmt.Errorf("backends: duplicate name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
		switch b.Kind {
		case KindOpenAI:
			if b.BaseURL == "" {
				return fmt.Errorf("backends.%s.base_url must be set for kind %q", b.Name, b.Kind)
			}
		case KindAnthropic, KindGemini:
		default:
			return fmt.Errorf("backends.%s.kind: unsupported value %q", b.Name, b.Kind)
		}
		if b.Temperature < 0 || b.Temperature > 2 {
			return fmt.Errorf("backends.%s.temperature must be between 0 and 2", b.Name)
		}
	}
	return nil
}

func (c *Config) validateModels() error {
	if len(c.Models) == 0 {
		return errors.New("at least one [[models]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d].id must be set", i)
		}
		if _, ok := seen[m.ID]; ok {
			return fmt.Errorf("models: duplicate id %q", m.ID)
		}
		seen[m.ID] = struct{}{}
		if _, ok := c.Backend(m.Backend); !ok {
			return fmt.Errorf("models.%s.backend: unknown backend %q", m.ID, m.Backend)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
