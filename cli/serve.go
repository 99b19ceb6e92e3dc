package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"product-scraper/presenter"
	"product-scraper/services"
)

func init() {
	rootCmd.AddCommand(storedCmd, serveCmd)
}

var storedCmd = &cobra.Command{
	Use:   "stored <target>",
	Short: "Prints the cleaned products archived for a target.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := newPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		t, err := p.Stored(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), services.RenderTable(t, 60))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves target selection and reports over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cleanup, err := newPipeline()
		if err != nil {
			return err
		}
		defer cleanup()

		srv := presenter.NewServer(cfg, p, presenter.NewSession(), logger)
		return srv.ListenAndServe(cmd.Context())
	},
}
