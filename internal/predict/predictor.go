package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"tagbench/internal/logging"
	"tagbench/internal/prompt"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

// Cache stores raw completions keyed by request.
type Cache interface {
	Get(ctx context.Context, key string) (llm.Response, bool, error)
	Put(ctx context.Context, key, backend, model string, resp llm.Response) error
}

// KeyFunc derives the cache key for a request routed to backend.
type KeyFunc func(backend, model string, sampling llm.Sampling, msgs []llm.Message) string

// ProgressFunc observes batch progress after each completed record.
type ProgressFunc func(done, total int)

// Predictor sends classification requests and applies the retry policy.
type Predictor struct {
	resolver Resolver
	policy   RetryPolicy
	cache    Cache
	cacheKey KeyFunc
	logger   *slog.Logger
	sleep    Sleeper
	rnd      func() float64
	progress ProgressFunc
}

// Option customizes a Predictor.
type Option func(*Predictor)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Predictor) { p.policy = policy }
}

// WithCache enables the completion cache. key must be deterministic.
func WithCache(cache Cache, key KeyFunc) Option {
	return func(p *Predictor) {
		if cache != nil && key != nil {
			p.cache = cache
			p.cacheKey = key
		}
	}
}

// WithLogger sets the logger used for retry and cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper Sleeper) Option {
	return func(p *Predictor) {
		if sleeper != nil {
			p.sleep = sleeper
		}
	}
}

// WithRand overrides the jitter source. fn must return values in [0, 1).
func WithRand(fn func() float64) Option {
	return func(p *Predictor) {
		if fn != nil {
			p.rnd = fn
		}
	}
}

// WithProgress registers a callback invoked after each record completes.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Predictor) { p.progress = fn }
}

// New constructs a Predictor routing requests through resolver.
func New(resolver Resolver, opts ...Option) *Predictor {
	p := &Predictor{
		resolver: resolver,
		policy:   DefaultRetryPolicy(),
		logger:   logging.NewNop(),
		sleep:    sleepContext,
		rnd:      rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "predict")
	return p
}

// Classify sends exactly one request for the user content and returns the
// trimmed reply. Retryable failures wrap services.ErrTransient.
func (p *Predictor) Classify(ctx context.Context, cfg prompt.Config, user string) (string, llm.Usage, error) {
	backend, err := p.resolver.Backend(cfg.ModelID)
	if err != nil {
		return "", llm.Usage{}, err
	}
	req := llm.Request{
		Model:    cfg.ModelID,
		Messages: llm.Conversation(cfg.SystemContent, cfg.AssistantContent, user),
	}

	var key string
	if p.cache != nil {
		var sampling llm.Sampling
		if s, ok := backend.(llm.Sampler); ok {
			sampling = s.Sampling()
		}
		key = p.cacheKey(backend.Name(), cfg.ModelID, sampling, req.Messages)
		resp, ok, err := p.cache.Get(ctx, key)
		switch {
		case err != nil:
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "completion cache read failed", "cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run 'tagbench cache clear' if the cache is corrupt"),
				logging.String(logging.FieldImpact, "request sent to backend"),
			)
		case ok:
			return strings.TrimSpace(resp.Content), llm.Usage{}, nil
		}
	}

	resp, err := backend.Complete(ctx, req)
	if err != nil {
		return "", llm.Usage{}, err
	}
	content := strings.TrimSpace(resp.Content)

	if p.cache != nil {
		if err := p.cache.Put(ctx, key, backend.Name(), cfg.ModelID, resp); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "completion cache write failed", "cache_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "completion will be requested again on the next run"),
			)
		}
	}
	return content, resp.Usage, nil
}

// PredictAll classifies users strictly in order. A transient failure retries
// the same record after the policy delay; any other failure aborts the batch.
// The returned predictions are index-aligned with users.
func (p *Predictor) PredictAll(ctx context.Context, cfg prompt.Config, users []string) ([]string, llm.Usage, error) {
	predictions := make([]string, len(users))
	var usage llm.Usage
	for i, user := range users {
		recordCtx := services.WithRecordIndex(ctx, i)
		content, u, err := p.classifyWithRetry(recordCtx, cfg, user)
		if err != nil {
			return nil, usage, err
		}
		predictions[i] = content
		usage.Add(u)
		if p.progress != nil {
			p.progress(i+1, len(users))
		}
	}
	return predictions, usage, nil
}

func (p *Predictor) classifyWithRetry(ctx context.Context, cfg prompt.Config, user string) (string, llm.Usage, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", llm.Usage{}, err
		}
		content, usage, err := p.Classify(ctx, cfg, user)
		if err == nil {
			return content, usage, nil
		}
		if !services.IsTransient(err) {
			return "", llm.Usage{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", llm.Usage{}, errors.Join(ctxErr, err)
		}
		if p.policy.Exhausted(attempt) {
			return "", llm.Usage{}, services.Wrap(services.ErrRetryExhausted, "predict", "predict all",
				fmt.Sprintf("gave up after %d attempts", attempt), err)
		}

		delay := p.policy.Delay(attempt, llm.RetryAfter(err), p.rnd)
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "backend unavailable; retrying record", "retry_scheduled",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "backend overloaded or rate limited; raise retry.cooldown_seconds if this persists"),
			logging.String(logging.FieldImpact, "record delayed"),
		)
		if err := p.sleep(ctx, delay); err != nil {
			return "", llm.Usage{}, err
		}
	}
}
