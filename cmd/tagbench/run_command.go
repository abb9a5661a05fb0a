package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"tagbench/internal/experiment"
	"tagbench/internal/logging"
	"tagbench/internal/metrics"
	"tagbench/internal/report"
	"tagbench/internal/services"
)

const (
	formatTable    = "table"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type runOutput struct {
	Results *report.Results    `json:"results"`
	Summary experiment.Summary `json:"summary"`
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var models []string
	var strategies []string
	var samples int
	var format string
	var noProgress bool
	var classes bool
	var ascii bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every configured model and strategy on the holdout set",
		Long: "Run predicts a tag for each holdout record with every (strategy, model) pair,\n" +
			"scores the predictions with weighted precision, recall, and F1, and prints a\n" +
			"comparison. Transient backend failures are retried per record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case formatTable, formatJSON, formatMarkdown:
			default:
				return services.Wrap(services.ErrValidation, "cli", "run", fmt.Sprintf("unsupported --format %q", format), nil)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderOpts := report.Options{ASCII: ascii}
			opts := []experiment.Option{experiment.WithLogger(logger)}

			if !noProgress && isTerminal(cmd.ErrOrStderr()) {
				bars := newProgressBars(cmd.ErrOrStderr())
				defer bars.finish()
				opts = append(opts, experiment.WithProgress(bars.update))
			} else {
				opts = append(opts, experiment.WithProgress(logProgress(logger)))
			}
			if format == formatTable {
				var mu sync.Mutex
				opts = append(opts, experiment.WithDistributionSink(func(key report.Key, dist []metrics.TagCount) {
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintln(out, report.RenderDistribution(key.ID(), dist, renderOpts))
				}))
			}

			runner := experiment.NewRunner(cfg, opts...)
			results, summary, err := runner.Run(cmd.Context(), experiment.Plan{
				Models:     models,
				Strategies: strategies,
				NumSamples: samples,
			})
			if err != nil {
				return err
			}

			switch format {
			case formatJSON:
				return writeJSON(cmd, runOutput{Results: results, Summary: summary})
			case formatMarkdown:
				fmt.Fprintln(out, report.RenderMarkdown(report.Flatten(results)))
				return nil
			}

			rows := report.Flatten(results)
			fmt.Fprintln(out, report.RenderComparison(rows, renderOpts))
			if classes {
				for _, o := range summary.Outcomes {
					key := report.Key{Strategy: o.Strategy, ModelID: o.ModelID}
					fmt.Fprintln(out, report.RenderClasses(key.ID(), o.Classes, renderOpts))
				}
			}
			printRunSummary(out, rows, summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&models, "model", "m", nil, "Model id to evaluate (repeatable; default all configured)")
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "Prompt strategy: zero_shot or few_shot (repeatable; default from config)")
	cmd.Flags().IntVarP(&samples, "samples", "n", 0, "Holdout records to evaluate (0 uses dataset.num_samples, -1 all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "Output format: table, json, or markdown")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	cmd.Flags().BoolVar(&classes, "classes", false, "Print per-label scores for each run")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "Draw bars and borders with ASCII characters")
	return cmd
}

// logProgress reports progress through the logger in 10% steps when no
// terminal is attached.
func logProgress(logger *slog.Logger) experiment.ProgressFunc {
	sampler := logging.NewProgressSampler(10)
	var mu sync.Mutex
	return func(key report.Key, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if !sampler.ShouldLog(done, total, key.ID()) {
			return
		}
		logger.Info("evaluation progress",
			logging.String("run", key.ID()),
			logging.Int("done", done),
			logging.Int("total", total),
		)
	}
}

func printRunSummary(out io.Writer, rows []report.Row, summary experiment.Summary) {
	if best, ok := report.Best(rows); ok {
		fmt.Fprintf(out, "Best F1: %s (%.4f)\n", best.ID, best.Report.F1)
	}
	fmt.Fprintf(out, "Run %s: %s holdout records x %d configurations in %s\n",
		summary.RunID,
		humanize.Comma(int64(summary.Holdout)),
		len(summary.Outcomes),
		summary.Elapsed.Round(time.Millisecond),
	)
	fmt.Fprintf(out, "Tokens: %s prompt, %s completion\n",
		humanize.Comma(summary.Usage.PromptTokens),
		humanize.Comma(summary.Usage.CompletionTokens),
	)
}

// progressBars shows one bar per configuration. A new key finishes the
// previous bar; configurations run one at a time.
type progressBars struct {
	mu  sync.Mutex
	out io.Writer
	key report.Key
	bar *progressbar.ProgressBar
}

func newProgressBars(out io.Writer) *progressBars {
	return &progressBars{out: out}
}

func (p *progressBars) update(key report.Key, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || p.key != key {
		if p.bar != nil {
			_ = p.bar.Finish()
		}
		p.key = key
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(key.ID()),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(done)
}

func (p *progressBars) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
