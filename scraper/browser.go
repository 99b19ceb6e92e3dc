package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"product-scraper/config"
	"product-scraper/utils"
)

// BrowserFetcher renders pages in headless Chrome and returns the final DOM.
type BrowserFetcher struct {
	chromeBin string
	userAgent string
	timeout   time.Duration
	logger    *utils.Logger
}

// NewBrowserFetcher creates a chromedp-backed fetcher. The browser is started
// per fetch and shut down before Fetch returns.
func NewBrowserFetcher(cfg config.FetcherConfig, logger *utils.Logger) *BrowserFetcher {
	bin := cfg.ChromeBin
	if bin == "" {
		bin = findChromeBinary()
	}
	return &BrowserFetcher{
		chromeBin: bin,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

func (f *BrowserFetcher) Name() string { return "browser" }

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if f.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(f.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	if f.timeout > 0 {
		var cancelTimeout context.CancelFunc
		tabCtx, cancelTimeout = context.WithTimeout(tabCtx, f.timeout)
		defer cancelTimeout()
	}

	f.logger.Debug("[fetcher] browser navigating to %s (binary: %q)", url, f.chromeBin)

	res, err := chromedp.RunResponse(tabCtx, chromedp.Navigate(url))
	if err != nil {
		return nil, classify(url, f.timeout, err)
	}
	if res == nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("no response for document")}
	}
	status := int(res.Status)
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: url, Status: status}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, classify(url, f.timeout, err)
	}
	return []byte(html), nil
}

func (f *BrowserFetcher) Close() error {
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary, or returns "" to let
// chromedp use its own lookup.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
