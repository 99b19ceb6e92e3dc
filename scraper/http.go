package scraper

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"

	"product-scraper/config"
	"product-scraper/utils"
)

// HTTPFetcher downloads pages with a plain HTTP client.
type HTTPFetcher struct {
	client  *resty.Client
	timeout time.Duration
	logger  *utils.Logger
}

// NewHTTPFetcher creates a resty-backed fetcher. A zero timeout means no limit.
func NewHTTPFetcher(cfg config.FetcherConfig, logger *utils.Logger) *HTTPFetcher {
	client := resty.New()
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}
	client.SetRetryCount(0)

	return &HTTPFetcher{client: client, timeout: cfg.Timeout, logger: logger}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	res, err := f.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, classify(url, f.timeout, err)
	}
	if !res.IsSuccess() {
		return nil, &FetchError{URL: url, Status: res.StatusCode()}
	}

	body, err := decodeBody(res.Body(), res.Header().Get("Content-Type"))
	if err != nil {
		return nil, &FetchError{URL: url, Status: res.StatusCode(), Err: err}
	}

	f.logger.Debug("[fetcher] GET %s → %d (%d bytes, %v)", url, res.StatusCode(), len(body), time.Since(start))
	return body, nil
}

// Close is a no-op; resty releases response bodies after reading them.
func (f *HTTPFetcher) Close() error {
	return nil
}
