package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-scraper/config"
	"product-scraper/models"
	"product-scraper/pipeline"
	"product-scraper/scraper"
	"product-scraper/services"
	"product-scraper/utils"
)

func analyzedRun(t *testing.T, target string, prices ...float64) *pipeline.Run {
	t.Helper()
	tbl := models.NewTable(models.ProductColumns...)
	for i, p := range prices {
		require.NoError(t, tbl.AppendRow(fmt.Sprintf("%s %d", target, i), "desc", models.FormatNumber(p)))
	}
	require.NoError(t, tbl.SetNumeric(models.ColumnPrice))

	results, err := services.NewAnalyzer(utils.Discard()).Analyze(tbl)
	require.NoError(t, err)
	return &pipeline.Run{Target: target, Label: strings.ToUpper(target), Results: results}
}

func TestSessionReplaceDiscardsPreviousRun(t *testing.T) {
	s := NewSession()
	_, ok := s.Current()
	assert.False(t, ok)

	s.Replace(analyzedRun(t, "laptops", 10, 20, 30))
	s.Replace(analyzedRun(t, "tablets", 5))

	run, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "tablets", run.Target)

	rep, err := s.Report(models.DataReport)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Table.Len())
	assert.Equal(t, "tablets 0", rep.Table.Row(0)[0])
}

func TestSessionReportsBeforeRun(t *testing.T) {
	s := NewSession()

	_, err := s.Reports()
	assert.ErrorIs(t, err, ErrNoRun)

	_, err = s.Report(models.PriceRangeReport)
	assert.ErrorIs(t, err, ErrNoRun)
}

func TestSessionReportLookup(t *testing.T) {
	s := NewSession()
	s.Replace(analyzedRun(t, "laptops", 10, 20, 30))

	names, err := s.Reports()
	require.NoError(t, err)
	assert.Len(t, names, 8)
	assert.Equal(t, models.BasicAnalysisReport, names[0])

	rep, err := s.Report("price range")
	require.NoError(t, err)
	assert.Equal(t, models.PriceRangeReport, rep.Name)
	assert.Equal(t, "Price Range: 20", rep.Text)
}

func TestSessionUnknownReportSuggests(t *testing.T) {
	s := NewSession()
	s.Replace(analyzedRun(t, "laptops", 10, 20, 30))

	_, err := s.Report("Price Rnage")
	require.ErrorIs(t, err, ErrUnknownReport)
	assert.Contains(t, err.Error(), `did you mean "Price Range"`)

	_, err = s.Report("zzzz")
	require.ErrorIs(t, err, ErrUnknownReport)
	assert.NotContains(t, err.Error(), "did you mean")
}

func TestRender(t *testing.T) {
	got := Render(models.Report{Name: models.PriceRangeReport, Text: "Price Range: 20"})
	want := "\n********** Price Range **********\nPrice Range: 20\n" + strings.Repeat("*", 60) + "\n"
	assert.Equal(t, want, got)
}

func TestRenderTableReport(t *testing.T) {
	run := analyzedRun(t, "laptops", 10, 20)
	rep, _ := run.Results.Get(models.DataReport)

	body := Body(rep)
	assert.Contains(t, body, "title")
	assert.Contains(t, body, "laptops 1")
	assert.Contains(t, Render(rep), "********** Data **********")
}

type fakeRunner struct {
	runs map[string]*pipeline.Run
	err  error
	last string
}

func (f *fakeRunner) Run(ctx context.Context, id string) (*pipeline.Run, error) {
	f.last = "run"
	return f.lookup(id)
}

func (f *fakeRunner) Analyze(ctx context.Context, id string) (*pipeline.Run, error) {
	f.last = "analyze"
	return f.lookup(id)
}

func (f *fakeRunner) lookup(id string) (*pipeline.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTarget, id)
	}
	return run, nil
}

func newTestServer(t *testing.T, runner Runner) (*Server, *Session) {
	t.Helper()
	cfg := &config.Config{
		Server:  config.ServerConfig{Addr: ":0", AllowedOrigins: []string{"*"}},
		Targets: config.DefaultTargets(),
	}
	session := NewSession()
	return NewServer(cfg, runner, session, utils.Discard()), session
}

func do(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var body map[string]interface{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestServerListTargets(t *testing.T) {
	s, _ := newTestServer(t, &fakeRunner{})

	rec, body := do(t, s, http.MethodGet, "/targets")
	require.Equal(t, http.StatusOK, rec.Code)

	items := body["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "laptops", items[0].(map[string]interface{})["id"])
	assert.Equal(t, "tablets", items[1].(map[string]interface{})["id"])
}

func TestServerRunThenBrowseReports(t *testing.T) {
	runner := &fakeRunner{runs: map[string]*pipeline.Run{
		"laptops": analyzedRun(t, "laptops", 10, 20, 30),
	}}
	s, session := newTestServer(t, runner)

	rec, _ := do(t, s, http.MethodGet, "/reports")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := do(t, s, http.MethodPost, "/targets/laptops/run")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run", runner.last)
	assert.Equal(t, "laptops", body["target"])
	assert.Len(t, body["reports"], 8)

	_, ok := session.Current()
	assert.True(t, ok)

	rec, body = do(t, s, http.MethodGet, "/reports/Price%20Range")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Price Range: 20", body["text"])

	rec, body = do(t, s, http.MethodGet, "/reports/Data")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{"title", "description", "price"}, body["columns"])
	assert.Len(t, body["rows"], 3)

	rec, _ = do(t, s, http.MethodGet, "/reports/Price%20Range?format=text")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "********** Price Range **********")

	rec, body = do(t, s, http.MethodGet, "/reports/Price%20Rnage")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "did you mean")
}

func TestServerAnalyze(t *testing.T) {
	runner := &fakeRunner{runs: map[string]*pipeline.Run{
		"tablets": analyzedRun(t, "tablets", 5, 6),
	}}
	s, _ := newTestServer(t, runner)

	rec, body := do(t, s, http.MethodPost, "/targets/tablets/analyze")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "analyze", runner.last)
	assert.Equal(t, "tablets", body["target"])
}

func TestServerRunErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown target", fmt.Errorf("%w: %q", config.ErrUnknownTarget, "phones"), http.StatusNotFound},
		{"fetch", &scraper.FetchError{URL: "http://x", Status: 500}, http.StatusBadGateway},
		{"timeout", &scraper.TimeoutError{URL: "http://x"}, http.StatusGatewayTimeout},
		{"parse", fmt.Errorf("analyze laptops: %w", &services.ParseError{Row: 2, Value: "free", Err: errors.New("bad")}), http.StatusUnprocessableEntity},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, session := newTestServer(t, &fakeRunner{err: tt.err})
			session.Replace(analyzedRun(t, "laptops", 1, 2))

			rec, body := do(t, s, http.MethodPost, "/targets/laptops/run")
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.err.Error(), body["error"])

			// a failed run keeps the previous one
			run, ok := session.Current()
			require.True(t, ok)
			assert.Equal(t, "laptops", run.Target)
		})
	}
}
