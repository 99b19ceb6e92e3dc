package scraper

import (
	"context"
	"time"

	"github.com/gocolly/colly/v2"

	"product-scraper/config"
	"product-scraper/utils"
)

// CollyFetcher downloads pages through a colly collector.
type CollyFetcher struct {
	collector *colly.Collector
	timeout   time.Duration
	logger    *utils.Logger
}

// NewCollyFetcher creates a colly-backed fetcher.
func NewCollyFetcher(cfg config.FetcherConfig, logger *utils.Logger) *CollyFetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}
	c.IgnoreRobotsTxt = true
	// colly converts declared charsets to UTF-8 itself
	c.DetectCharset = true
	// status codes are checked in Fetch so that OnResponse sees every answer
	c.ParseHTTPErrorResponse = true

	return &CollyFetcher{collector: c, timeout: cfg.Timeout, logger: logger}
}

func (f *CollyFetcher) Name() string { return "colly" }

func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(url, f.timeout, err)
	}

	// Clone the collector so callbacks from earlier fetches do not fire.
	c := f.collector.Clone()

	var (
		body        []byte
		status      int
		contentType string
		fetchErr    error
	)

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
		contentType = r.Headers.Get("Content-Type")
	})

	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.Visit(url); err != nil && fetchErr == nil {
		fetchErr = err
	}
	c.Wait()

	if fetchErr != nil {
		if status != 0 && (status < 200 || status > 299) {
			return nil, &FetchError{URL: url, Status: status, Err: fetchErr}
		}
		return nil, classify(url, f.timeout, fetchErr)
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: url, Status: status}
	}

	f.logger.Debug("[fetcher] colly GET %s → %d (%d bytes, %s)", url, status, len(body), contentType)
	return body, nil
}

func (f *CollyFetcher) Close() error {
	return nil
}
