package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-scraper/config"
	"product-scraper/models"
	"product-scraper/scraper"
	"product-scraper/services"
	"product-scraper/storage"
	"product-scraper/utils"
)

const productCard = `
<div class="thumbnail">
  <h4 class="price">%s</h4>
  <a class="title" href="#">%s</a>
  <p class="description">%s</p>
</div>`

func productPage(products ...[3]string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range products {
		fmt.Fprintf(&b, productCard, p[2], p[0], p[1])
	}
	b.WriteString("</body></html>")
	return b.String()
}

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/laptops", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(productPage(
			[3]string{"Asus VivoBook", "Core i3", "$295.99"},
			[3]string{"Lenovo ThinkPad", "Core i5", "$1,133.82"},
			[3]string{"Acer Aspire", "Ryzen 5", "$494.71"},
		)))
	})
	mux.HandleFunc("/tablets", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(productPage(
			[3]string{"Galaxy Tab", "10 inch", "$251.99"},
		)))
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body></body></html>"))
	})
	mux.HandleFunc("/free", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(productPage([3]string{"Giveaway", "promo", "free"})))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	target := func(path string) config.Target {
		return config.Target{
			Label:      path,
			SourceURL:  baseURL + "/" + path,
			InputPath:  filepath.Join(dir, "raw", path+".csv"),
			OutputPath: filepath.Join(dir, "processed", path+".csv"),
		}
	}
	return &config.Config{
		Fetcher: config.FetcherConfig{Mode: "http", Timeout: 2 * time.Second, UserAgent: "test-agent"},
		Targets: map[string]config.Target{
			"laptops": target("laptops"),
			"tablets": target("tablets"),
			"empty":   target("empty"),
			"free":    target("free"),
			"missing": target("missing"),
		},
	}
}

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *config.Config) {
	t.Helper()
	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	f := scraper.NewHTTPFetcher(cfg.Fetcher, utils.Discard())
	return New(cfg, f, utils.Discard(), opts...), cfg
}

func TestScrapeWritesRawTable(t *testing.T) {
	p, cfg := newTestPipeline(t)

	tbl, err := p.Scrape(context.Background(), "laptops")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"Asus VivoBook", "Core i3", "$295.99"}, tbl.Row(0))

	saved, err := storage.Load(cfg.Targets["laptops"].InputPath)
	require.NoError(t, err)
	assert.Equal(t, 3, saved.Len())
	assert.Equal(t, []string{"Lenovo ThinkPad", "Core i5", "$1,133.82"}, saved.Row(1))
}

func TestScrapeUnknownTarget(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Scrape(context.Background(), "phones")
	assert.True(t, errors.Is(err, config.ErrUnknownTarget), "got %v", err)
}

func TestScrapeFetchErrorStopsPipeline(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.Scrape(context.Background(), "missing")
	var fe *scraper.FetchError
	require.True(t, errors.As(err, &fe), "want *scraper.FetchError, got %v", err)
	assert.Equal(t, http.StatusNotFound, fe.Status)

	_, err = storage.Load(cfg.Targets["missing"].InputPath)
	assert.Error(t, err, "no raw file should be written after a failed fetch")
}

func TestAnalyzeAfterScrape(t *testing.T) {
	p, cfg := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.Scrape(ctx, "laptops")
	require.NoError(t, err)

	run, err := p.Analyze(ctx, "laptops")
	require.NoError(t, err)
	assert.Equal(t, "laptops", run.Target)
	assert.Equal(t, 8, run.Results.Len())

	rng, ok := run.Results.Get(models.PriceRangeReport)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(rng.Text, "Price Range: 837.8"), "got %q", rng.Text)

	cleaned, err := storage.Load(cfg.Targets["laptops"].OutputPath)
	require.NoError(t, err)
	price, ok := cleaned.Column(models.ColumnPrice)
	require.True(t, ok)
	assert.Equal(t, models.KindNumber, price.Kind)
	assert.InDelta(t, 1133.82, price.Num[1], 1e-9)
}

func TestAnalyzeWithoutRawFile(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Analyze(context.Background(), "tablets")
	assert.Error(t, err)
}

func TestRunUnparseablePrice(t *testing.T) {
	p, cfg := newTestPipeline(t)

	_, err := p.Run(context.Background(), "free")
	var pe *services.ParseError
	require.True(t, errors.As(err, &pe), "want *services.ParseError, got %v", err)
	assert.Equal(t, 0, pe.Row)
	assert.Equal(t, "free", pe.Value)

	// the raw table is still written before cleaning fails
	raw, err := storage.Load(cfg.Targets["free"].InputPath)
	require.NoError(t, err)
	assert.Equal(t, 1, raw.Len())
}

func TestRunEmptyPage(t *testing.T) {
	p, _ := newTestPipeline(t)

	run, err := p.Run(context.Background(), "empty")
	require.NoError(t, err)

	data := run.Results.Data()
	require.NotNil(t, data)
	assert.Equal(t, 0, data.Len())

	ext, ok := run.Results.Get(models.PriceExtremesReport)
	require.True(t, ok)
	assert.Contains(t, ext.Text, "undefined")
}

func TestRunArchivesCleanedTable(t *testing.T) {
	store, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()

	p, _ := newTestPipeline(t, WithArchive(store))
	ctx := context.Background()

	_, err = p.Run(ctx, "tablets")
	require.NoError(t, err)

	stored, err := p.Stored(ctx, "tablets")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len())
	assert.Equal(t, []string{"Galaxy Tab", "10 inch", "251.99"}, stored.Row(0))
}

func TestStoredWithoutArchive(t *testing.T) {
	p, _ := newTestPipeline(t)

	_, err := p.Stored(context.Background(), "laptops")
	assert.ErrorIs(t, err, ErrNoArchive)
}

func TestScrapeAllStopsAtFirstFailure(t *testing.T) {
	p, cfg := newTestPipeline(t)

	counts, err := p.ScrapeAll(context.Background())
	// targets run in id order: empty, free, laptops, missing, tablets
	require.Error(t, err)
	assert.Equal(t, map[string]int{"empty": 0, "free": 1, "laptops": 3}, counts)

	_, err = storage.Load(cfg.Targets["tablets"].InputPath)
	assert.Error(t, err, "targets after the failure are not scraped")
}

func TestScrapeAllSpacesRequests(t *testing.T) {
	p, cfg := newTestPipeline(t)
	delete(cfg.Targets, "missing")
	delete(cfg.Targets, "free")
	delete(cfg.Targets, "empty")
	p.throttle = utils.NewThrottle(50 * time.Millisecond)

	start := time.Now()
	counts, err := p.ScrapeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"laptops": 3, "tablets": 1}, counts)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestStagesRunThroughMiddleware(t *testing.T) {
	var stages []string
	record := func(name string, next StageFunc) StageFunc {
		return func(ctx context.Context) error {
			stages = append(stages, name)
			return next(ctx)
		}
	}
	p, _ := newTestPipeline(t, WithMiddleware(record))

	_, err := p.Run(context.Background(), "tablets")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fetch_page", "extract_products", "build_table", "save_raw_data",
		"clean_data", "analyze_data", "save_clean_data",
	}, stages)
}

func TestMiddlewareOrder(t *testing.T) {
	var calls []string
	mw := func(tag string) Middleware {
		return func(name string, next StageFunc) StageFunc {
			return func(ctx context.Context) error {
				calls = append(calls, tag+">"+name)
				err := next(ctx)
				calls = append(calls, tag+"<"+name)
				return err
			}
		}
	}
	fn := chain("stage", func(context.Context) error {
		calls = append(calls, "run")
		return nil
	}, []Middleware{mw("a"), mw("b")})

	require.NoError(t, fn(context.Background()))
	assert.Equal(t, []string{"a>stage", "b>stage", "run", "b<stage", "a<stage"}, calls)
}

func TestLoggingMiddlewareReportsFailure(t *testing.T) {
	var buf strings.Builder
	logger := utils.NewLoggerTo(&buf, utils.LevelInfo)
	boom := errors.New("boom")

	err := chain("fetch_page", func(context.Context) error { return boom }, []Middleware{Logging(logger)})(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "Running fetch_page")
	assert.Contains(t, buf.String(), "fetch_page failed: boom")
	assert.NotContains(t, buf.String(), "Completed fetch_page")
}

func TestAnalyzeRejectsNonFiniteRawPrice(t *testing.T) {
	p, cfg := newTestPipeline(t)
	target := cfg.Targets["laptops"]

	raw := models.NewTable(models.ProductColumns...)
	require.NoError(t, raw.AppendRow("A", "a", "10"))
	require.NoError(t, raw.AppendRow("B", "b", "Inf"))
	require.NoError(t, storage.Save(raw, target.InputPath))

	_, err := p.Analyze(context.Background(), "laptops")
	var pe *services.ParseError
	require.True(t, errors.As(err, &pe), "want *services.ParseError, got %v", err)
	assert.Equal(t, 1, pe.Row)
	assert.Equal(t, "Inf", pe.Value)

	_, err = storage.Load(target.OutputPath)
	assert.Error(t, err, "no cleaned file should be written")
}
