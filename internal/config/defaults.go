package config

const (
	defaultConfigPath          = "~/.config/tagbench/config.toml"
	defaultWorkDir             = "~/.local/share/tagbench"
	defaultLogDir              = "~/.local/share/tagbench/logs"
	defaultTrainURL            = "https://raw.githubusercontent.com/GokuMohandas/Made-With-ML/main/datasets/dataset.csv"
	defaultHoldoutURL          = "https://raw.githubusercontent.com/GokuMohandas/Made-With-ML/main/datasets/holdout.csv"
	defaultShuffleSeed         = 1234
	defaultTestSize            = 0.2
	defaultFetchTimeoutSeconds = 60
	defaultExamplesPerLabel    = 2
	defaultLabel               = "other"
	defaultRetryMaxAttempts    = 8
	defaultRetryCooldown       = 30
	defaultRetryMultiplier     = 2
	defaultRetryMaxDelay       = 300
	defaultRetryJitter         = 0.2
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultBackendTimeout      = 60
	defaultMaxTokens           = 64
	defaultCacheFile           = "completions.db"

	StrategyZeroShot = "zero_shot"
	StrategyFewShot  = "few_shot"

	KindOpenAI    = "openai"
	KindAnthropic = "anthropic"
	KindGemini    = "gemini"
)

var defaultStrategies = []string{StrategyZeroShot, StrategyFewShot}

// Default returns a Config populated with repository defaults. Backends and
// models are filled in by normalize when the file declares none.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Dataset: Dataset{
			Train:               defaultTrainURL,
			Holdout:             defaultHoldoutURL,
			ShuffleSeed:         defaultShuffleSeed,
			TestSize:            defaultTestSize,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
		},
		Prompt: Prompt{
			ExamplesPerLabel: defaultExamplesPerLabel,
			DefaultLabel:     defaultLabel,
		},
		Retry: Retry{
			MaxAttempts:     defaultRetryMaxAttempts,
			CooldownSeconds: defaultRetryCooldown,
			Multiplier:      defaultRetryMultiplier,
			MaxDelaySeconds: defaultRetryMaxDelay,
			Jitter:          defaultRetryJitter,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultBackends() []Backend {
	return []Backend{
		{
			Name:      "openai",
			Kind:      KindOpenAI,
			BaseURL:   "https://api.openai.com/v1/chat/completions",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		{
			Name:      "anyscale",
			Kind:      KindOpenAI,
			BaseURL:   "https://api.endpoints.anyscale.com/v1/chat/completions",
			APIKeyEnv: "ANYSCALE_API_KEY",
		},
	}
}

func defaultModels() []Model {
	return []Model{
		{ID: "gpt-3.5-turbo-0613", Backend: "openai"},
		{ID: "gpt-4-0613", Backend: "openai"},
		{ID: "meta-llama/Llama-2-7b-chat-hf", Backend: "anyscale"},
		{ID: "meta-llama/Llama-2-13b-chat-hf", Backend: "anyscale"},
		{ID: "meta-llama/Llama-2-70b-chat-hf", Backend: "anyscale"},
	}
}

func defaultAPIKeyEnv(kind string) string {
	switch kind {
	case KindAnthropic:
		return "ANTHROPIC_API_KEY"
	case KindGemini:
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
