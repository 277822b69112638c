package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/meteo-etl-service/internal/domain"
)

// Runner executes one pipeline run on demand.
type Runner interface {
	RunOnce(ctx context.Context) (domain.RunReport, error)
}

// Server exposes health, readiness, metrics, and manual trigger endpoints.
type Server struct {
	httpServer *http.Server
	runner     Runner
	logger     *slog.Logger
	runs       sync.WaitGroup
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /run routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, runner Runner, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       10 * time.Second,
			// POST /run holds the connection for a full fetch and upload.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		runner: runner,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /run", s.handleRun)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline,
// then waits for manual runs still in flight. Runs are not cancellable; each
// is bounded by the fetch and upload timeouts, not by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.runs.Wait()
	return err
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleRun runs the pipeline synchronously and reports the outcome.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.runs.Add(1)
	defer s.runs.Done()

	s.logger.Info("manual run requested", "remote", r.RemoteAddr)

	report, err := s.runner.RunOnce(r.Context())
	if err != nil {
		sharedobs.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "failed",
			"run_id": report.ID,
			"kind":   domain.KindOf(err),
			"error":  err.Error(),
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, report)
}
