package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-scraper/utils"
)

const shopPage = `<html><body>
<div class="thumbnail"><h4 class="price">$100.00</h4><a class="title">Alpha</a><p class="description">first</p></div>
<div class="thumbnail"><h4 class="price">$300.00</h4><a class="title">Beta</a><p class="description">second</p></div>
</body></html>`

// writeTestConfig points the laptops target at a local shop and keeps every
// file inside a temp dir.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, shopPage)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	body := fmt.Sprintf(`
fetcher:
  mode: http
  timeout: 2s
  rate_limit: 0s
store:
  driver: sqlite
  sqlite_path: %s
targets:
  laptops:
    source_url: %s/laptops
    input_path: %s
    output_path: %s
  tablets:
    source_url: %s/tablets
    input_path: %s
    output_path: %s
`,
		filepath.Join(dir, "products.db"),
		srv.URL, filepath.Join(dir, "raw", "laptops.csv"), filepath.Join(dir, "processed", "laptops.xlsx"),
		srv.URL, filepath.Join(dir, "raw", "tablets.csv"), filepath.Join(dir, "processed", "tablets.csv"),
	)
	path := filepath.Join(dir, "scraper.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	logger = utils.Discard()
	scrapeAll, analyzeReport, runReport = false, "", ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTargetsCommand(t *testing.T) {
	out, err := execute(t, "--config", writeTestConfig(t), "targets")
	require.NoError(t, err)
	assert.Contains(t, out, "laptops")
	assert.Contains(t, out, "tablets")
}

func TestRunCommandSingleReport(t *testing.T) {
	out, err := execute(t, "--config", writeTestConfig(t), "run", "laptops", "--report", "Price Range")
	require.NoError(t, err)
	assert.Contains(t, out, "********** Price Range **********")
	assert.Contains(t, out, "Price Range: 200")
	assert.NotContains(t, out, "Standard Deviation")
}

func TestScrapeThenAnalyzeAndStored(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := execute(t, "--config", cfgPath, "scrape", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "laptops: 2 products")
	assert.Contains(t, out, "tablets: 2 products")

	out, err = execute(t, "--config", cfgPath, "analyze", "laptops")
	require.NoError(t, err)
	for _, name := range []string{"Basic Data Analysis", "Products with highest prices", "Coefficient of Variation of Prices", "Data"} {
		assert.Contains(t, out, "********** "+name+" **********")
	}

	out, err = execute(t, "--config", cfgPath, "stored", "laptops")
	require.NoError(t, err)
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "300")
}

func TestReportsCommand(t *testing.T) {
	cfgPath := writeTestConfig(t)
	_, err := execute(t, "--config", cfgPath, "scrape", "tablets")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "reports", "tablets")
	require.NoError(t, err)
	assert.Contains(t, out, "1. Basic Data Analysis\n")
	assert.Contains(t, out, "8. Data\n")
}

func TestScrapeArgumentValidation(t *testing.T) {
	cfgPath := writeTestConfig(t)

	_, err := execute(t, "--config", cfgPath, "scrape")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "scrape", "laptops", "--all")
	assert.Error(t, err)
}

func TestUnknownReport(t *testing.T) {
	_, err := execute(t, "--config", writeTestConfig(t), "run", "laptops", "--report", "Price Rnage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "Price Range"`)
}
