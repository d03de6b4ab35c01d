package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"presswork/pkg/logging"
)

const (
	// DefaultListen is the address the ops server binds when none is
	// configured.
	DefaultListen = ":8420"

	// DefaultMetricsPath is where the Prometheus registry is exposed.
	DefaultMetricsPath = "/metrics"

	// drainTimeout bounds how long Shutdown waits for in-flight requests.
	drainTimeout = 10 * time.Second
)

// Config carries the ops server settings.
type Config struct {
	// Listen is the bind address, host optional ("127.0.0.1:8420", ":8420").
	Listen string

	// MetricsPath is the scrape endpoint path.
	MetricsPath string

	// Gatherer is the metric registry to expose. The metrics endpoint is not
	// mounted when nil.
	Gatherer prometheus.Gatherer

	// Version is reported by the health endpoint.
	Version string
}

// Server serves health, readiness and metrics for daemon mode.
type Server struct {
	cfg      Config
	httpSrv  *http.Server
	draining atomic.Bool
}

// New creates a Server, filling config defaults.
func New(cfg Config) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = DefaultMetricsPath
	}
	// chi rejects routes without a leading slash.
	if !strings.HasPrefix(cfg.MetricsPath, "/") {
		cfg.MetricsPath = "/" + cfg.MetricsPath
	}

	s := &Server{cfg: cfg}
	s.httpSrv = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler builds the routed handler. Exposed so tests can drive the server
// through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	if s.cfg.Gatherer != nil {
		r.Handle(s.cfg.MetricsPath, promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// Start serves until Shutdown is called or the listener fails. The normal
// shutdown path returns nil.
func (s *Server) Start() error {
	logging.Info("Server", "Ops server listening on %s (metrics at %s)", s.cfg.Listen, s.cfg.MetricsPath)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown flips readiness to 503, then drains in-flight requests for up to
// drainTimeout before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.draining.Store(true)
	logging.Info("Server", "Ops server draining")

	dctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(dctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.cfg.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.draining.Load() {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warn("Server", "Failed to encode response: %v", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Debug("Server", "%s %s %d %s %s", r.Method, r.URL.Path, ww.Status(), time.Since(start).Round(time.Millisecond), r.RemoteAddr)
	})
}
