package presenter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"product-scraper/config"
	"product-scraper/pipeline"
	"product-scraper/scraper"
	"product-scraper/services"
	"product-scraper/utils"
)

// Runner produces analysis runs for a target.
type Runner interface {
	Run(ctx context.Context, targetID string) (*pipeline.Run, error)
	Analyze(ctx context.Context, targetID string) (*pipeline.Run, error)
}

// Server exposes target selection and report browsing over HTTP.
type Server struct {
	router  *chi.Mux
	cfg     *config.Config
	runner  Runner
	session *Session
	logger  *utils.Logger

	// runs are serialised: the pipeline writes the target's files
	runMu sync.Mutex
}

func NewServer(cfg *config.Config, runner Runner, session *Session, logger *utils.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		runner:  runner,
		session: session,
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/targets", s.handleListTargets)
	s.router.Post("/targets/{id}/run", s.handleRun)
	s.router.Post("/targets/{id}/analyze", s.handleAnalyze)
	s.router.Get("/reports", s.handleListReports)
	s.router.Get("/reports/{name}", s.handleGetReport)
}

func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[server] Listening on %s", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("[server] Shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("[server] %s %s → %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type targetView struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	SourceURL  string `json:"source_url"`
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	items := make([]targetView, 0, len(s.cfg.Targets))
	for _, id := range s.cfg.TargetIDs() {
		t := s.cfg.Targets[id]
		items = append(items, targetView{
			ID:         id,
			Label:      t.Label,
			SourceURL:  t.SourceURL,
			InputPath:  t.InputPath,
			OutputPath: t.OutputPath,
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"items": items})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, s.runner.Run)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	s.execute(w, r, s.runner.Analyze)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*pipeline.Run, error)) {
	id := chi.URLParam(r, "id")

	s.runMu.Lock()
	run, err := fn(r.Context(), id)
	s.runMu.Unlock()
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	s.session.Replace(run)
	respondJSON(w, http.StatusOK, runView(run))
}

func runView(run *pipeline.Run) map[string]interface{} {
	return map[string]interface{}{
		"target":      run.Target,
		"label":       run.Label,
		"started_at":  run.StartedAt,
		"duration_ms": run.Duration.Milliseconds(),
		"reports":     run.Results.Keys(),
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	run, ok := s.session.Current()
	if !ok {
		respondError(w, http.StatusNotFound, ErrNoRun.Error())
		return
	}
	respondJSON(w, http.StatusOK, runView(run))
}

// handleGetReport returns a report as JSON, or as rendered text when
// ?format=text is given.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid report name")
		return
	}

	rep, err := s.session.Report(name)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(Render(rep)))
		return
	}

	payload := map[string]interface{}{"name": rep.Name}
	if rep.IsTable() {
		rows := make([][]string, 0, rep.Table.Len())
		for i := 0; i < rep.Table.Len(); i++ {
			rows = append(rows, rep.Table.Row(i))
		}
		payload["columns"] = rep.Table.ColumnNames()
		payload["rows"] = rows
	} else {
		payload["text"] = rep.Text
	}
	respondJSON(w, http.StatusOK, payload)
}

// statusFor maps pipeline and session errors to HTTP status codes.
func statusFor(err error) int {
	var (
		fetchErr   *scraper.FetchError
		timeoutErr *scraper.TimeoutError
		extractErr *scraper.ExtractError
		parseErr   *services.ParseError
	)
	switch {
	case errors.Is(err, config.ErrUnknownTarget),
		errors.Is(err, ErrNoRun),
		errors.Is(err, ErrUnknownReport):
		return http.StatusNotFound
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &extractErr),
		errors.As(err, &parseErr),
		errors.Is(err, services.ErrNoPriceColumn):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
