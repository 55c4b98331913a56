package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubsync/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify translators, speech engine and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			results := preflight.RunAll(cmd.Context(), ctx.configValue())
			fmt.Fprintln(cmd.OutOrStdout(), renderPreflight(results))
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}
}

func renderPreflight(results []preflight.Result) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "ok"
		switch {
		case !r.Passed && r.Optional:
			status = "warn"
		case !r.Passed:
			status = "FAIL"
		}
		rows = append(rows, []string{r.Name, status, r.Detail})
	}
	return renderTable([]column{
		leftColumn("Check"),
		leftColumn("Status"),
		textColumn("Detail", detailWidth),
	}, rows)
}
