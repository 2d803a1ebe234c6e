// Package server exposes the solve and verify pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness and build information
//	GET  /metrics     Prometheus metrics, when a handler is configured
//	POST /v1/solve    instance text in, solution text (or JSON) out
//	POST /v1/verify   {"instance": ..., "solution": ...} in, report out
//	POST /v1/render   {"instance": ..., "solution": ...} in, drawing out
//	GET  /v1/runs     recorded runs, newest first
//	GET  /v1/runs/ID  one recorded run
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/siteplan/pkg/pipeline"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 10 * time.Second

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	logger   *log.Logger
	metrics  http.Handler
	defaults pipeline.Options
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithDefaults sets the solve options used when a request leaves them unset.
func WithDefaults(opts pipeline.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

// New creates a server around runner. A nil logger means log.Default().
func New(runner *pipeline.Runner, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the chi router with every route and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(limitBody)
		r.Post("/solve", s.solve)
		r.Post("/verify", s.verify)
		r.Post("/render", s.render)
		r.Get("/runs", s.runs)
		r.Get("/runs/{id}", s.run)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
