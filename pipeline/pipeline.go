package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"product-scraper/config"
	"product-scraper/models"
	"product-scraper/scraper"
	"product-scraper/services"
	"product-scraper/storage"
	"product-scraper/utils"
)

// ErrNoArchive is returned by Stored when no product archive is configured.
var ErrNoArchive = errors.New("no product archive configured")

// Archive keeps the cleaned products of each target.
type Archive interface {
	Write(ctx context.Context, target string, t *models.Table) error
	FetchAll(ctx context.Context, target string) (*models.Table, error)
}

// Run is the outcome of one analysis: everything a presenter needs to show
// its reports. A new Run replaces the previous one entirely.
type Run struct {
	Target    string
	Label     string
	StartedAt time.Time
	Duration  time.Duration
	Results   *models.Results
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithArchive stores every cleaned table in a.
func WithArchive(a Archive) Option {
	return func(p *Pipeline) { p.archive = a }
}

// WithMiddleware replaces the default stage middleware.
func WithMiddleware(mws ...Middleware) Option {
	return func(p *Pipeline) { p.middleware = mws }
}

// Pipeline runs the scrape, clean and analyze stages for configured targets.
// Stages run strictly one after another.
type Pipeline struct {
	cfg        *config.Config
	fetcher    scraper.Fetcher
	cleaner    *services.Cleaner
	analyzer   *services.Analyzer
	archive    Archive
	throttle   *utils.Throttle
	logger     *utils.Logger
	middleware []Middleware
}

// New creates a Pipeline. By default every stage is logged and timed.
func New(cfg *config.Config, fetcher scraper.Fetcher, logger *utils.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		fetcher:    fetcher,
		cleaner:    services.NewCleaner(logger),
		analyzer:   services.NewAnalyzer(logger),
		throttle:   utils.NewThrottle(cfg.Fetcher.RateLimit),
		logger:     logger,
		middleware: []Middleware{Logging(logger), Timing(logger)},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// stage runs fn through the pipeline's middleware under the given name.
func stage[T any](ctx context.Context, p *Pipeline, name string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := chain(name, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	}, p.middleware)(ctx)
	return out, err
}

// Scrape fetches the target's page, extracts its products and writes the raw
// table to the target's input path.
func (p *Pipeline) Scrape(ctx context.Context, targetID string) (*models.Table, error) {
	target, err := p.cfg.Target(targetID)
	if err != nil {
		return nil, err
	}
	t, err := p.scrape(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", targetID, err)
	}
	return t, nil
}

func (p *Pipeline) scrape(ctx context.Context, target config.Target) (*models.Table, error) {
	if err := p.throttle.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := stage(ctx, p, "fetch_page", func(ctx context.Context) ([]byte, error) {
		return p.fetcher.Fetch(ctx, target.SourceURL)
	})
	if err != nil {
		return nil, err
	}

	records, err := stage(ctx, p, "extract_products", func(context.Context) ([]models.RawProduct, error) {
		return scraper.Extract(body)
	})
	if err != nil {
		return nil, err
	}

	table, _ := stage(ctx, p, "build_table", func(context.Context) (*models.Table, error) {
		return services.BuildTable(records), nil
	})

	_, err = stage(ctx, p, "save_raw_data", func(context.Context) (struct{}, error) {
		return struct{}{}, storage.Save(table, target.InputPath)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("[pipeline] Scraped %d products from %s → %s", table.Len(), target.SourceURL, target.InputPath)
	return table, nil
}

// ScrapeAll scrapes every configured target in id order, spacing the requests
// by the configured rate limit. The first failure stops the loop.
func (p *Pipeline) ScrapeAll(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(p.cfg.Targets))
	for _, id := range p.cfg.TargetIDs() {
		t, err := p.Scrape(ctx, id)
		if err != nil {
			return counts, err
		}
		counts[id] = t.Len()
	}
	return counts, nil
}

// Analyze loads the target's raw table from its input path, cleans and
// analyzes it, and writes the cleaned table to the output path.
func (p *Pipeline) Analyze(ctx context.Context, targetID string) (*Run, error) {
	target, err := p.cfg.Target(targetID)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	raw, err := stage(ctx, p, "load_data", func(context.Context) (*models.Table, error) {
		return storage.Load(target.InputPath)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", targetID, err)
	}

	return p.analyze(ctx, targetID, target, raw, start)
}

// Run scrapes the target and analyzes the freshly scraped table.
func (p *Pipeline) Run(ctx context.Context, targetID string) (*Run, error) {
	target, err := p.cfg.Target(targetID)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	raw, err := p.scrape(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", targetID, err)
	}
	return p.analyze(ctx, targetID, target, raw, start)
}

func (p *Pipeline) analyze(ctx context.Context, id string, target config.Target, raw *models.Table, start time.Time) (*Run, error) {
	cleaned, err := stage(ctx, p, "clean_data", func(context.Context) (*models.Table, error) {
		return p.cleaner.Clean(raw)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}

	results, err := stage(ctx, p, "analyze_data", func(context.Context) (*models.Results, error) {
		return p.analyzer.Analyze(cleaned)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}

	_, err = stage(ctx, p, "save_clean_data", func(context.Context) (struct{}, error) {
		return struct{}{}, storage.Save(cleaned, target.OutputPath)
	})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", id, err)
	}

	if p.archive != nil {
		_, err = stage(ctx, p, "archive_products", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.archive.Write(ctx, id, cleaned)
		})
		if err != nil {
			return nil, fmt.Errorf("analyze %s: %w", id, err)
		}
	}

	return &Run{
		Target:    id,
		Label:     target.Label,
		StartedAt: start,
		Duration:  time.Since(start),
		Results:   results,
	}, nil
}

// Stored returns the archived cleaned products of a target.
func (p *Pipeline) Stored(ctx context.Context, targetID string) (*models.Table, error) {
	if p.archive == nil {
		return nil, ErrNoArchive
	}
	if _, err := p.cfg.Target(targetID); err != nil {
		return nil, err
	}
	return p.archive.FetchAll(ctx, targetID)
}
