package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tagbench/internal/completioncache"
	"tagbench/internal/config"
	"tagbench/internal/dataset"
	"tagbench/internal/evaluate"
	"tagbench/internal/labels"
	"tagbench/internal/logging"
	"tagbench/internal/metrics"
	"tagbench/internal/predict"
	"tagbench/internal/prompt"
	"tagbench/internal/report"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

// ErrRunInProgress indicates another run holds the work directory lock.
var ErrRunInProgress = errors.New("another tagbench run is in progress")

// Plan selects what to evaluate. Empty fields fall back to configuration.
type Plan struct {
	Models     []string
	Strategies []string
	// NumSamples caps the holdout records evaluated; zero uses configuration
	// and a negative value evaluates everything.
	NumSamples int
}

// Inputs are the prepared datasets and label space shared by every run.
type Inputs struct {
	Train        []dataset.Record
	Holdout      []dataset.Record
	Labels       labels.Set
	DefaultLabel string
}

// Summary describes a completed benchmark.
type Summary struct {
	RunID    string             `json:"run_id"`
	Started  time.Time          `json:"started"`
	Elapsed  time.Duration      `json:"elapsed"`
	Train    int                `json:"train_records"`
	Holdout  int                `json:"holdout_records"`
	Labels   []string           `json:"labels"`
	Outcomes []evaluate.Outcome `json:"outcomes"`
	Usage    llm.Usage          `json:"usage"`
}

// ProgressFunc observes per-record progress for one configuration.
type ProgressFunc func(key report.Key, done, total int)

// Runner executes Plans against a configuration.
type Runner struct {
	cfg        *config.Config
	resolver   predict.Resolver
	logger     *slog.Logger
	httpClient *http.Client
	sleeper    predict.Sleeper
	progress   ProgressFunc
	sink       func(key report.Key, dist []metrics.TagCount)
}

// Option customizes a Runner.
type Option func(*Runner)

// WithResolver overrides the configuration-built backend router.
func WithResolver(resolver predict.Resolver) Option {
	return func(r *Runner) { r.resolver = resolver }
}

// WithLogger sets the run logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHTTPClient sets the client used to fetch remote datasets.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) { r.httpClient = client }
}

// WithSleeper overrides retry waits.
func WithSleeper(sleeper predict.Sleeper) Option {
	return func(r *Runner) { r.sleeper = sleeper }
}

// WithProgress registers a per-record progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithDistributionSink receives each configuration's tag distribution.
func WithDistributionSink(fn func(key report.Key, dist []metrics.TagCount)) Option {
	return func(r *Runner) { r.sink = fn }
}

// NewRunner constructs a Runner for cfg.
func NewRunner(cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "experiment")
	return r
}

// Prepare loads both datasets and fixes the label set. Labels come from the
// manifest when configured and from the training tags otherwise.
func (r *Runner) Prepare(ctx context.Context, numSamples int) (Inputs, error) {
	opts := dataset.LoadOptions{HTTPClient: r.httpClient, Timeout: r.cfg.FetchTimeout(), Logger: r.logger}
	train, err := dataset.Load(ctx, r.cfg.Dataset.Train, opts)
	if err != nil {
		return Inputs{}, fmt.Errorf("load training set: %w", err)
	}
	holdout, err := dataset.Load(ctx, r.cfg.Dataset.Holdout, opts)
	if err != nil {
		return Inputs{}, fmt.Errorf("load holdout set: %w", err)
	}

	in := Inputs{DefaultLabel: r.cfg.Prompt.DefaultLabel}
	if path := strings.TrimSpace(r.cfg.Dataset.LabelsFile); path != "" {
		set, manifest, err := labels.LoadManifest(path)
		if err != nil {
			return Inputs{}, err
		}
		in.Labels = set
		if manifest.Default != "" {
			in.DefaultLabel = manifest.Default
		}
	} else {
		set, err := labels.FromObserved(dataset.TrueTags(train))
		if err != nil {
			return Inputs{}, fmt.Errorf("derive labels from training set: %w", err)
		}
		in.Labels = set
	}

	if numSamples == 0 {
		numSamples = r.cfg.Dataset.NumSamples
	}
	in.Train = dataset.Shuffle(train, r.cfg.Dataset.ShuffleSeed)
	in.Holdout = dataset.Sample(dataset.Shuffle(holdout, r.cfg.Dataset.ShuffleSeed), numSamples)

	var unknown int
	for _, rec := range in.Holdout {
		if !in.Labels.Contains(rec.Tag) {
			unknown++
		}
	}
	if unknown > 0 {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "holdout contains tags outside the label set", "unknown_holdout_tags",
			logging.Int("records", unknown),
			logging.String(logging.FieldErrorHint, "add the tags to the label manifest or fix the holdout file"),
			logging.String(logging.FieldImpact, "those records can never be predicted correctly"),
		)
	}
	return in, nil
}

// Run evaluates every planned configuration. Any failure aborts the run and
// no partial results are returned.
func (r *Runner) Run(ctx context.Context, plan Plan) (*report.Results, Summary, error) {
	summary := Summary{RunID: uuid.NewString(), Started: time.Now()}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, r.logger)

	models, strategies, err := r.resolvePlan(plan)
	if err != nil {
		return nil, Summary{}, err
	}

	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, Summary{}, services.Wrap(services.ErrConfiguration, "experiment", "prepare", "create directories", err)
	}
	lock := flock.New(r.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, Summary{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, Summary{}, services.Wrap(services.ErrConfiguration, "experiment", "lock", r.cfg.LockPath(), ErrRunInProgress)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	in, err := r.Prepare(ctx, plan.NumSamples)
	if err != nil {
		return nil, Summary{}, err
	}
	summary.Train = len(in.Train)
	summary.Holdout = len(in.Holdout)
	summary.Labels = in.Labels.Labels()

	resolver := r.resolver
	if resolver == nil {
		router, err := predict.NewRouter(ctx, r.cfg)
		if err != nil {
			return nil, Summary{}, err
		}
		resolver = router
	}

	predictOpts := []predict.Option{
		predict.WithRetryPolicy(predict.PolicyFromConfig(r.cfg.Retry)),
		predict.WithLogger(r.logger),
		predict.WithSleeper(r.sleeper),
	}
	if r.cfg.Cache.Enabled {
		store, err := completioncache.Open(ctx, r.cfg.Cache.Path)
		if err != nil {
			return nil, Summary{}, services.Wrap(services.ErrConfiguration, "experiment", "open cache", r.cfg.Cache.Path, err)
		}
		defer store.Close()
		predictOpts = append(predictOpts, predict.WithCache(store, completioncache.Key))
	}

	logger.Info("benchmark started",
		logging.Int("models", len(models)),
		logging.Any("strategies", strategies),
		logging.Int("train_records", summary.Train),
		logging.Int("holdout_records", summary.Holdout),
		logging.Int("labels", in.Labels.Len()),
	)

	results := &report.Results{}
	for _, strategy := range strategies {
		for _, modelID := range models {
			key := report.Key{Strategy: strategy, ModelID: modelID}
			outcome, err := r.evaluateOne(ctx, key, in, resolver, predictOpts)
			if err != nil {
				return nil, Summary{}, err
			}
			results.Set(key, outcome.Report)
			summary.Outcomes = append(summary.Outcomes, outcome)
			summary.Usage.Add(outcome.Usage)
		}
	}
	summary.Elapsed = time.Since(summary.Started)
	logger.Info("benchmark completed",
		logging.Int("configurations", results.Len()),
		logging.Int64("tokens", summary.Usage.Total()),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return results, summary, nil
}

func (r *Runner) evaluateOne(ctx context.Context, key report.Key, in Inputs, resolver predict.Resolver, base []predict.Option) (evaluate.Outcome, error) {
	cfg, err := prompt.Build(key.ModelID, key.Strategy, in.Labels, in.Train, prompt.Options{
		ExamplesPerLabel: r.cfg.Prompt.ExamplesPerLabel,
		CleanText:        r.cfg.Prompt.CleanText,
	})
	if err != nil {
		return evaluate.Outcome{}, err
	}

	opts := append([]predict.Option(nil), base...)
	if r.progress != nil {
		opts = append(opts, predict.WithProgress(func(done, total int) { r.progress(key, done, total) }))
	}
	evalOpts := []evaluate.Option{evaluate.WithLogger(r.logger)}
	if r.sink != nil {
		evalOpts = append(evalOpts, evaluate.WithDistributionSink(func(_ prompt.Config, dist []metrics.TagCount) {
			r.sink(key, dist)
		}))
	}
	ev := evaluate.New(predict.New(resolver, opts...), in.DefaultLabel, evalOpts...)
	return ev.Evaluate(ctx, in.Holdout, cfg, in.Labels)
}

func (r *Runner) resolvePlan(plan Plan) ([]string, []string, error) {
	models := plan.Models
	if len(models) == 0 {
		models = r.cfg.ModelIDs()
	}
	for _, id := range models {
		if _, err := r.cfg.BackendForModel(id); err != nil {
			return nil, nil, services.Wrap(services.ErrConfiguration, "experiment", "plan", "", err)
		}
	}
	strategies := slices.Clone(plan.Strategies)
	if len(strategies) == 0 {
		strategies = slices.Clone(r.cfg.Prompt.Strategies)
	}
	for i, s := range strategies {
		s = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
		if s != prompt.ZeroShot && s != prompt.FewShot {
			return nil, nil, services.Wrap(services.ErrConfiguration, "experiment", "plan", fmt.Sprintf("unknown strategy %q", strategies[i]), nil)
		}
		strategies[i] = s
	}
	models, strategies = dedupe(models), dedupe(strategies)
	if len(models) == 0 || len(strategies) == 0 {
		return nil, nil, services.Wrap(services.ErrConfiguration, "experiment", "plan", "nothing to evaluate", nil)
	}
	return models, strategies, nil
}

// dedupe drops repeated values, keeping first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
