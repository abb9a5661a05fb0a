package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tagbench/internal/config"
	"tagbench/internal/dataset"
	"tagbench/internal/services"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var input string
	var trainOut string
	var testOut string
	var testSize float64
	var seed int64

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Write a stratified train/test split of a labeled CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(trainOut) == "" || strings.TrimSpace(testOut) == "" {
				return services.Wrap(services.ErrValidation, "cli", "split", "--train-out and --test-out are required", nil)
			}
			if !cmd.Flags().Changed("test-size") {
				testSize = cfg.Dataset.TestSize
			}
			if testSize <= 0 || testSize >= 1 {
				return services.Wrap(services.ErrValidation, "cli", "split", "--test-size must be between 0 and 1", nil)
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Dataset.ShuffleSeed
			}
			source := strings.TrimSpace(input)
			if source == "" {
				source = cfg.Dataset.Train
			}

			records, err := dataset.Load(cmd.Context(), source, dataset.LoadOptions{Timeout: cfg.FetchTimeout(), Logger: logger})
			if err != nil {
				return err
			}
			train, test := dataset.StratifiedSplit(records, testSize, seed)
			for _, target := range []struct {
				path    string
				records []dataset.Record
			}{{trainOut, train}, {testOut, test}} {
				if err := writeSplit(target.path, target.records); err != nil {
					return err
				}
			}

			trainCounts := dataset.Counts(train)
			testCounts := dataset.Counts(test)
			rows := make([][]string, 0, len(trainCounts))
			for _, tag := range dataset.Tags(records) {
				rows = append(rows, []string{tag, humanize.Comma(int64(trainCounts[tag])), humanize.Comma(int64(testCounts[tag]))})
			}
			rows = append(rows, []string{"total", humanize.Comma(int64(len(train))), humanize.Comma(int64(len(test)))})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Stratified split", []string{"Tag", "Train", "Test"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV path or URL to split (default: dataset.train)")
	cmd.Flags().StringVar(&trainOut, "train-out", "", "Destination CSV for the training portion")
	cmd.Flags().StringVar(&testOut, "test-out", "", "Destination CSV for the test portion")
	cmd.Flags().Float64Var(&testSize, "test-size", 0.2, "Fraction of each tag placed in the test portion")
	cmd.Flags().Int64Var(&seed, "seed", 1234, "Shuffle seed")
	return cmd
}

func writeSplit(path string, records []dataset.Record) error {
	target, err := config.ExpandPath(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", target, err)
	}
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if err := dataset.WriteCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return f.Close()
}
