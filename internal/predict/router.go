package predict

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tagbench/internal/config"
	"tagbench/internal/services"
	"tagbench/internal/services/anthropic"
	"tagbench/internal/services/gemini"
	"tagbench/internal/services/llm"
)

// Resolver maps a model id to the backend that serves it.
type Resolver interface {
	Backend(modelID string) (llm.Backend, error)
}

// HealthChecker is implemented by backends that can verify a model cheaply.
type HealthChecker interface {
	HealthCheck(ctx context.Context, model string) error
}

// Router is the configuration-driven Resolver.
type Router struct {
	backends map[string]llm.Backend
	models   map[string]string
}

// NewRouter builds one backend per configured [[backends]] entry and binds
// every configured model to its backend.
func NewRouter(ctx context.Context, cfg *config.Config) (*Router, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "predict", "new router", "config is nil", nil)
	}
	backends := make(map[string]llm.Backend, len(cfg.Backends))
	for _, b := range cfg.Backends {
		backend, err := BuildBackend(ctx, b)
		if err != nil {
			return nil, err
		}
		backends[b.Name] = backend
	}
	models := make(map[string]string, len(cfg.Models))
	for _, m := range cfg.Models {
		models[m.ID] = m.Backend
	}
	return NewStaticRouter(backends, models), nil
}

// NewStaticRouter wires pre-built backends, mainly for tests.
func NewStaticRouter(backends map[string]llm.Backend, models map[string]string) *Router {
	r := &Router{
		backends: make(map[string]llm.Backend, len(backends)),
		models:   make(map[string]string, len(models)),
	}
	for name, b := range backends {
		r.backends[name] = b
	}
	for id, name := range models {
		r.models[id] = name
	}
	return r
}

// BuildBackend constructs the client for one configured backend.
func BuildBackend(ctx context.Context, b config.Backend) (llm.Backend, error) {
	cfg := llm.Config{
		Name:           b.Name,
		APIKey:         b.APIKey,
		BaseURL:        b.BaseURL,
		Referer:        b.Referer,
		Title:          b.Title,
		TimeoutSeconds: b.TimeoutSeconds,
		Temperature:    b.Temperature,
		MaxTokens:      b.MaxTokens,
	}
	switch strings.ToLower(strings.TrimSpace(b.Kind)) {
	case config.KindOpenAI, "":
		return llm.NewClient(cfg), nil
	case config.KindAnthropic:
		return anthropic.NewClient(cfg), nil
	case config.KindGemini:
		return gemini.NewClient(ctx, cfg)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "predict", "build backend",
			fmt.Sprintf("backend %q has unsupported kind %q", b.Name, b.Kind), nil)
	}
}

// Backend returns the backend named for modelID.
func (r *Router) Backend(modelID string) (llm.Backend, error) {
	name, ok := r.models[modelID]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "predict", "route",
			fmt.Sprintf("model %q is not configured", modelID), nil)
	}
	backend, ok := r.backends[name]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "predict", "route",
			fmt.Sprintf("model %q references unknown backend %q", modelID, name), nil)
	}
	return backend, nil
}

// Models returns the routed model ids in sorted order.
func (r *Router) Models() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
