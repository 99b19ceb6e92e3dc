package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var scrapeAll bool

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeAll, "all", false, "scrape every configured target")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [target | --all]",
	Short: "Downloads a target's product page and writes the raw table.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapeAll == (len(args) == 1) {
			return errors.New("scrape: give either a target or --all")
		}

		p, cleanup, err := newPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		if scrapeAll {
			counts, err := p.ScrapeAll(cmd.Context())
			for _, id := range cfg.TargetIDs() {
				if n, ok := counts[id]; ok {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d products → %s\n", id, n, cfg.Targets[id].InputPath)
				}
			}
			return err
		}

		t, err := p.Scrape(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		target, _ := cfg.Target(args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d products → %s\n", args[0], t.Len(), target.InputPath)
		return nil
	},
}
