package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/net/html/charset"

	"product-scraper/config"
	"product-scraper/utils"
)

// Fetcher retrieves the raw content of a page.
type Fetcher interface {
	// Fetch performs a single GET. Only 2xx responses succeed.
	Fetch(ctx context.Context, url string) ([]byte, error)
	Name() string
	Close() error
}

// NewFetcher builds the fetcher selected by cfg.Mode.
func NewFetcher(cfg config.FetcherConfig, logger *utils.Logger) (Fetcher, error) {
	switch cfg.Mode {
	case "", "http":
		return NewHTTPFetcher(cfg, logger), nil
	case "colly":
		return NewCollyFetcher(cfg, logger), nil
	case "browser":
		return NewBrowserFetcher(cfg, logger), nil
	default:
		return nil, fmt.Errorf("scraper: unknown fetcher mode %q", cfg.Mode)
	}
}

// decodeBody converts body to UTF-8 using the charset announced in
// contentType or sniffed from the document.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return io.ReadAll(r)
}

// isTimeout reports whether err was caused by a deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// classify wraps a transport error into a TimeoutError or FetchError.
func classify(url string, timeout time.Duration, err error) error {
	if isTimeout(err) {
		return &TimeoutError{URL: url, Timeout: timeout, Err: err}
	}
	return &FetchError{URL: url, Err: err}
}
