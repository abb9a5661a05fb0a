package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tagbench/internal/preflight"
	"tagbench/internal/services"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var ping bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, datasets, and backend credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Ping: ping})
			failed := preflight.Failed(results)

			if jsonOutput {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(results))
				for _, r := range results {
					status := "ok"
					if !r.Passed {
						status = "FAIL"
					}
					rows = append(rows, []string{r.Name, status, r.Detail})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable("Preflight", []string{"Check", "Status", "Detail"}, rows, nil))
			}
			if len(failed) > 0 {
				return services.Wrap(services.ErrConfiguration, "cli", "check", fmt.Sprintf("%d of %d checks failed", len(failed), len(results)), nil)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "Send one health request to every backend in use")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
