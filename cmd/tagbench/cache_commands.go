package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tagbench/internal/completioncache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the completion cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached completion counts and token totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cacheExists(cfg.Cache.Path) {
				fmt.Fprintf(out, "No completion cache at %s (enabled: %s)\n", cfg.Cache.Path, yesNo(cfg.Cache.Enabled))
				return nil
			}
			store, err := completioncache.Open(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, stats)
			}

			fmt.Fprintf(out, "Cache: %s (%s, enabled: %s)\n", stats.Path, humanize.Bytes(uint64(max(stats.SizeBytes, 0))), yesNo(cfg.Cache.Enabled))
			fmt.Fprintf(out, "Entries: %s  Hits: %s  Tokens: %s\n",
				humanize.Comma(int64(stats.Entries)),
				humanize.Comma(int64(stats.Hits)),
				humanize.Comma(stats.Tokens.Total()),
			)
			if len(stats.Models) == 0 {
				return nil
			}
			rows := make([][]string, 0, len(stats.Models))
			for _, m := range stats.Models {
				rows = append(rows, []string{m.Backend, m.Model, humanize.Comma(int64(m.Entries)), humanize.Comma(int64(m.Hits))})
			}
			fmt.Fprintln(out, renderTable("", []string{"Backend", "Model", "Entries", "Hits"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of text")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cacheExists(cfg.Cache.Path) {
				fmt.Fprintf(out, "No completion cache at %s\n", cfg.Cache.Path)
				return nil
			}
			store, err := completioncache.Open(cmd.Context(), cfg.Cache.Path)
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %s cached completions from %s\n", humanize.Comma(removed), store.Path())
			return nil
		},
	}
}

func cacheExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
