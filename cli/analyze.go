package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"product-scraper/pipeline"
	"product-scraper/presenter"
)

var (
	analyzeReport string
	runReport     string
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeReport, "report", "", "show only the named report")
	runCmd.Flags().StringVar(&runReport, "report", "", "show only the named report")
	rootCmd.AddCommand(analyzeCmd, runCmd, reportsCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <target> [--report name]",
	Short: "Cleans and analyzes a target's previously scraped table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return present(cmd, args[0], analyzeReport, func(ctx context.Context, p *pipeline.Pipeline, id string) (*pipeline.Run, error) {
			return p.Analyze(ctx, id)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <target> [--report name]",
	Short: "Scrapes a target, then cleans and analyzes the fresh table.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return present(cmd, args[0], runReport, func(ctx context.Context, p *pipeline.Pipeline, id string) (*pipeline.Run, error) {
			return p.Run(ctx, id)
		})
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <target>",
	Short: "Analyzes a target's scraped table and lists the available reports.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, err := analyzeInto(cmd.Context(), args[0], func(ctx context.Context, p *pipeline.Pipeline, id string) (*pipeline.Run, error) {
			return p.Analyze(ctx, id)
		})
		if err != nil {
			return err
		}
		names, err := session.Reports()
		if err != nil {
			return err
		}
		for i, name := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, name)
		}
		return nil
	},
}

type runFunc func(ctx context.Context, p *pipeline.Pipeline, id string) (*pipeline.Run, error)

func analyzeInto(ctx context.Context, id string, fn runFunc) (*presenter.Session, error) {
	p, cleanup, err := newPipeline()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	run, err := fn(ctx, p, id)
	if err != nil {
		return nil, err
	}
	session := presenter.NewSession()
	session.Replace(run)
	return session, nil
}

func present(cmd *cobra.Command, id, report string, fn runFunc) error {
	session, err := analyzeInto(cmd.Context(), id, fn)
	if err != nil {
		return err
	}
	return printReports(cmd.OutOrStdout(), session, report)
}

// printReports writes one named report, or every report in order when name is empty.
func printReports(w io.Writer, session *presenter.Session, name string) error {
	if name != "" {
		rep, err := session.Report(name)
		if err != nil {
			return err
		}
		fmt.Fprint(w, presenter.Render(rep))
		return nil
	}

	names, err := session.Reports()
	if err != nil {
		return err
	}
	for _, n := range names {
		rep, err := session.Report(n)
		if err != nil {
			return err
		}
		fmt.Fprint(w, presenter.Render(rep))
	}
	return nil
}
