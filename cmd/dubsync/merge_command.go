package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dubsync/internal/cues"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var input cueInput
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge caption fragments into phrases",
		RunE: func(cmd *cobra.Command, args []string) error {
			merged, err := input.merged(cmd.Context(), ctx.configValue())
			if err != nil {
				return err
			}
			if asJSON {
				if merged == nil {
					merged = []cues.Cue{}
				}
				return writeJSON(cmd, merged)
			}
			rows := make([][]string, 0, len(merged))
			for i, c := range merged {
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					formatSeconds(c.Start),
					formatSeconds(c.End()),
					c.Text,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]column{
				rightColumn("#"),
				rightColumn("Start"),
				rightColumn("End"),
				textColumn("Text", cueTextWidth),
			}, rows))
			fmt.Fprintf(out, "%d phrase(s)\n", len(merged))
			return nil
		},
	}
	input.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write merged cues as JSON")
	return cmd
}
