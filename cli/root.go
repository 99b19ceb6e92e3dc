package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"product-scraper/config"
	"product-scraper/pipeline"
	"product-scraper/scraper"
	"product-scraper/storage"
	"product-scraper/utils"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger = utils.NewLogger()
)

var rootCmd = &cobra.Command{
	Use:           "product-scraper",
	Short:         "product-scraper scrapes the webscraper.io test shop and analyzes product prices.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		logger.SetLevel(utils.ParseLevel(level))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a scraper.yaml config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

// newPipeline builds a pipeline from the loaded config. The returned cleanup
// releases the fetcher and the archive connection.
func newPipeline() (*pipeline.Pipeline, func(), error) {
	fetcher, err := scraper.NewFetcher(cfg.Fetcher, logger)
	if err != nil {
		return nil, nil, err
	}

	store, err := openArchive(cfg)
	if err != nil {
		fetcher.Close()
		return nil, nil, err
	}

	var opts []pipeline.Option
	if store != nil {
		opts = append(opts, pipeline.WithArchive(store))
	}
	cleanup := func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("Closing %s fetcher: %v", fetcher.Name(), err)
		}
		if store != nil {
			if err := store.Close(); err != nil {
				logger.Warn("Closing %s archive: %v", store.Driver(), err)
			}
		}
	}
	return pipeline.New(cfg, fetcher, logger, opts...), cleanup, nil
}

// openArchive opens the configured product archive, or returns nil when
// archiving is disabled.
func openArchive(cfg *config.Config) (*storage.ProductStore, error) {
	switch cfg.Store.Driver {
	case "postgres":
		logger.Info("Connecting to PostgreSQL at %s:%s", cfg.Postgres.Host, cfg.Postgres.Port)
		return storage.OpenPostgres(cfg.DSN())
	case "sqlite":
		logger.Info("Opening SQLite archive %s", cfg.Store.SQLitePath)
		return storage.OpenSQLite(cfg.Store.SQLitePath)
	default:
		return nil, nil
	}
}
