package evaluate

import (
	"context"
	"log/slog"
	"time"

	"tagbench/internal/dataset"
	"tagbench/internal/labels"
	"tagbench/internal/logging"
	"tagbench/internal/metrics"
	"tagbench/internal/prompt"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

// Predictor is the batch prediction dependency.
type Predictor interface {
	PredictAll(ctx context.Context, cfg prompt.Config, users []string) ([]string, llm.Usage, error)
}

// DistributionSink receives the true vs predicted tag counts of each run.
type DistributionSink func(cfg prompt.Config, dist []metrics.TagCount)

// Outcome is everything one evaluation produced.
type Outcome struct {
	ModelID      string               `json:"model_id"`
	Strategy     string               `json:"strategy"`
	Raw          []string             `json:"raw"`
	Predictions  []string             `json:"predictions"`
	Truth        []string             `json:"truth"`
	Report       metrics.Report       `json:"report"`
	Accuracy     float64              `json:"accuracy"`
	Classes      []metrics.ClassScore `json:"classes"`
	Confusion    metrics.Confusion    `json:"confusion"`
	Distribution []metrics.TagCount   `json:"distribution"`
	Usage        llm.Usage            `json:"usage"`
	Elapsed      time.Duration        `json:"elapsed"`
}

// Evaluator scores prompt configurations.
type Evaluator struct {
	predictor    Predictor
	defaultLabel string
	sink         DistributionSink
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithDistributionSink registers the per-run tag distribution consumer.
func WithDistributionSink(sink DistributionSink) Option {
	return func(e *Evaluator) { e.sink = sink }
}

// WithLogger sets the evaluator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for Elapsed.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// New constructs an Evaluator. Predictions outside the label set become defaultLabel.
func New(predictor Predictor, defaultLabel string, opts ...Option) *Evaluator {
	e := &Evaluator{
		predictor:    predictor,
		defaultLabel: defaultLabel,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = logging.NewComponentLogger(e.logger, "evaluate")
	return e
}

// Evaluate predicts every record under cfg, sanitizes the replies against set,
// and computes metrics. No partial outcome is returned on error.
func (e *Evaluator) Evaluate(ctx context.Context, records []dataset.Record, cfg prompt.Config, set labels.Set) (Outcome, error) {
	if set.Len() == 0 {
		return Outcome{}, services.Wrap(services.ErrValidation, "evaluate", "evaluate", "label set is empty", nil)
	}
	ctx = services.WithModel(services.WithStrategy(ctx, cfg.Strategy), cfg.ModelID)
	logger := logging.WithContext(ctx, e.logger)

	truth := dataset.TrueTags(records)
	users := make([]string, len(records))
	for i, r := range records {
		users[i] = prompt.UserContent(r, cfg.CleanText)
	}

	logger.Info("evaluation started", logging.Int("records", len(records)))
	start := e.now()
	raw, usage, err := e.predictor.PredictAll(ctx, cfg, users)
	if err != nil {
		return Outcome{}, err
	}
	predictions := labels.Sanitize(raw, set, e.defaultLabel)

	report, err := metrics.Weighted(truth, predictions)
	if err != nil {
		return Outcome{}, err
	}
	accuracy, err := metrics.Accuracy(truth, predictions)
	if err != nil {
		return Outcome{}, err
	}
	classes, err := metrics.PerClass(truth, predictions)
	if err != nil {
		return Outcome{}, err
	}
	confusion, err := metrics.NewConfusion(truth, predictions)
	if err != nil {
		return Outcome{}, err
	}
	dist := metrics.Distribution(truth, predictions)
	if e.sink != nil {
		e.sink(cfg, dist)
	}

	var coerced int
	for i := range raw {
		if raw[i] != predictions[i] {
			coerced++
		}
	}
	out := Outcome{
		ModelID:      cfg.ModelID,
		Strategy:     cfg.Strategy,
		Raw:          raw,
		Predictions:  predictions,
		Truth:        truth,
		Report:       report,
		Accuracy:     accuracy,
		Classes:      classes,
		Confusion:    confusion,
		Distribution: dist,
		Usage:        usage,
		Elapsed:      e.now().Sub(start),
	}
	logger.Info("evaluation completed",
		logging.Float64("precision", report.Precision),
		logging.Float64("recall", report.Recall),
		logging.Float64("f1", report.F1),
		logging.Int("coerced", coerced),
		logging.Int64("tokens", usage.Total()),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}
