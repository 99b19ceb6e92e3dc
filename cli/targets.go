package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(targetsCmd)
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Lists the configured scrape targets.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := table.NewWriter()
		w.AppendHeader(table.Row{"ID", "Label", "Source", "Raw data", "Cleaned data"})
		for _, id := range cfg.TargetIDs() {
			t := cfg.Targets[id]
			w.AppendRow(table.Row{id, t.Label, t.SourceURL, t.InputPath, t.OutputPath})
		}
		w.SetStyle(table.StyleLight)
		w.Style().Format.Header = text.FormatDefault
		fmt.Fprintln(cmd.OutOrStdout(), w.Render())
	},
}
