package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tagbench/internal/experiment"
	"tagbench/internal/prompt"
	"tagbench/internal/services"
	"tagbench/internal/services/llm"
)

func newPromptCommand(ctx *commandContext) *cobra.Command {
	var modelID string
	var strategy string
	var index int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the messages sent for one holdout record",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(modelID) == "" {
				ids := cfg.ModelIDs()
				if len(ids) > 0 {
					modelID = ids[0]
				}
			}
			strategy = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(strategy)), "-", "_")

			in, err := experiment.NewRunner(cfg, experiment.WithLogger(logger)).Prepare(cmd.Context(), -1)
			if err != nil {
				return err
			}
			if index < 0 || index >= len(in.Holdout) {
				return services.Wrap(services.ErrValidation, "cli", "prompt",
					fmt.Sprintf("--record %d out of range (holdout has %d records)", index, len(in.Holdout)), nil)
			}
			pc, err := prompt.Build(modelID, strategy, in.Labels, in.Train, prompt.Options{
				ExamplesPerLabel: cfg.Prompt.ExamplesPerLabel,
				CleanText:        cfg.Prompt.CleanText,
			})
			if err != nil {
				return err
			}
			record := in.Holdout[index]
			msgs := llm.Conversation(pc.SystemContent, pc.AssistantContent, prompt.UserContent(record, pc.CleanText))

			if jsonOutput {
				return writeJSON(cmd, msgs)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s %s (expected tag: %s)\n", pc.ModelID, pc.Strategy, record.Tag)
			for _, m := range msgs {
				fmt.Fprintf(out, "\n[%s]\n%s\n", m.Role, m.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Model id (default: first configured model)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", prompt.FewShot, "Prompt strategy: zero_shot or few_shot")
	cmd.Flags().IntVarP(&index, "record", "r", 0, "Index into the shuffled holdout set")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the messages as JSON")
	return cmd
}
