package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tagbench/internal/config"
	"tagbench/internal/dataset"
	"tagbench/internal/experiment"
	"tagbench/internal/labels"
)

type labelRow struct {
	Label   string `json:"label"`
	Train   int    `json:"train"`
	Holdout int    `json:"holdout"`
}

type labelsOutput struct {
	Default string     `json:"default"`
	Labels  []labelRow `json:"labels"`
}

func newLabelsCommand(ctx *commandContext) *cobra.Command {
	var writePath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Show the label set and per-label support",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			in, err := experiment.NewRunner(cfg, experiment.WithLogger(logger)).Prepare(cmd.Context(), -1)
			if err != nil {
				return err
			}

			trainCounts := dataset.Counts(in.Train)
			holdoutCounts := dataset.Counts(in.Holdout)
			payload := labelsOutput{Default: in.DefaultLabel}
			for _, l := range in.Labels.Labels() {
				payload.Labels = append(payload.Labels, labelRow{Label: l, Train: trainCounts[l], Holdout: holdoutCounts[l]})
			}

			if target := strings.TrimSpace(writePath); target != "" {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve manifest path: %w", err)
				}
				if err := labels.WriteManifest(expanded, in.Labels, in.DefaultLabel); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote label manifest to %s\n", expanded)
			}

			if jsonOutput {
				return writeJSON(cmd, payload)
			}
			rows := make([][]string, 0, len(payload.Labels))
			for _, r := range payload.Labels {
				rows = append(rows, []string{r.Label, humanize.Comma(int64(r.Train)), humanize.Comma(int64(r.Holdout))})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable("Labels", []string{"Label", "Train", "Holdout"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			fmt.Fprintf(cmd.OutOrStdout(), "Fallback label: %s\n", in.DefaultLabel)
			return nil
		},
	}

	cmd.Flags().StringVarP(&writePath, "write", "w", "", "Write the label set as a YAML manifest to this path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
