// Package webapi exposes the plan-generation HTTP surface: create a plan
// request, advance it one week, and read its status. Handlers are stateless;
// all lifecycle logic lives in the orchestrator.
package webapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trainplan/pkg/logx"
	"trainplan/pkg/metrics"
	"trainplan/pkg/orchestrator"
)

// Server is the web API HTTP server.
type Server struct {
	orch       *orchestrator.Orchestrator
	stats      *metrics.QueryService // nil disables /api/stats
	logger     *logx.Logger
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithStats enables the /api/stats endpoint backed by a Prometheus query service.
func WithStats(qs *metrics.QueryService) Option {
	return func(s *Server) { s.stats = qs }
}

// NewServer creates a web API server over the given orchestrator.
func NewServer(orch *orchestrator.Orchestrator, opts ...Option) *Server {
	s := &Server{
		orch:   orch,
		logger: logx.NewLogger("webapi"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler with all routes registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/plan", s.handlePlan)
	mux.HandleFunc("/plan/archive", s.handleArchivedPlan)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	if s.stats != nil {
		mux.HandleFunc("/api/stats", s.handleStats)
	}

	return s.withLogging(mux)
}

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("web API listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web API server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("web API shutdown failed: %w", err)
	}
	return nil
}

// handlePlan dispatches the three plan operations on one path by method.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreatePlan(w, r)
	case http.MethodPut:
		s.handleAdvancePlan(w, r)
	case http.MethodGet:
		s.handleGetPlan(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	stats, err := s.stats.GetGenerationStats(r.Context())
	if err != nil {
		s.logger.Warn("stats query failed: %v", err)
		writeError(w, http.StatusBadGateway, "metrics backend unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// withLogging wraps the handler with request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("%s %s -> %d (%v)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// errorResponse is the structured failure envelope every handler returns.
// The client never sees a bare transport-level failure.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{Error: message, Details: details})
}
