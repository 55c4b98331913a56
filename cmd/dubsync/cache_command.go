package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"dubsync/internal/store"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the translation memo",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show translation memo statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			memo, err := store.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open translation memo: %w", err)
			}
			defer memo.Close()

			stats, err := memo.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Memo: %s (%s)\n", stats.Path, humanize.Bytes(uint64(max(stats.SizeBytes, 0))))
			fmt.Fprintf(out, "Entries: %d, hits: %d\n", stats.Entries, stats.Hits)
			if stats.Entries == 0 {
				return nil
			}
			total := strconv.Itoa(stats.Entries)
			fmt.Fprintln(out, renderTable([]column{leftColumn("Engine"), rightColumn("Entries")},
				countRows(stats.ByEngine), "Total", total))
			fmt.Fprintln(out, renderTable([]column{leftColumn("Target"), rightColumn("Entries")},
				countRows(stats.ByTarget), "Total", total))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write statistics as JSON")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete memoised translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			memo, err := store.Open(ctx.configValue())
			if err != nil {
				return fmt.Errorf("open translation memo: %w", err)
			}
			defer memo.Close()

			if target != "" {
				locale, err := resolveTarget(ctx.configValue(), target)
				if err != nil {
					return err
				}
				target = locale
			}
			removed, err := memo.Clear(cmd.Context(), target)
			if err != nil {
				return err
			}
			scope := "all targets"
			if target != "" {
				scope = target
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entr%s (%s)\n", removed, pluralY(removed), scope)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "target", "t", "", "Only clear entries for this target locale")
	return cmd
}

func countRows(counts map[string]int) [][]string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, strconv.Itoa(counts[k])})
	}
	return rows
}

func pluralY(n int64) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
