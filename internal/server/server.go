// Package server exposes the record store over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rcliao/recordstore/internal/config"
	"github.com/rcliao/recordstore/internal/journal"
	"github.com/rcliao/recordstore/internal/metrics"
	"github.com/rcliao/recordstore/internal/store"
)

// Options holds the optional collaborators of a Server.
type Options struct {
	// Journal receives applied batches. Nil disables it.
	Journal journal.Journal
	Logger  zerolog.Logger
	// Metrics defaults to a private set when nil.
	Metrics *metrics.Metrics
}

// Server holds the HTTP interface and the store it serves.
type Server struct {
	store   store.Store
	journal journal.Journal
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	handler    http.Handler
	httpServer *http.Server
}

// New builds the server and its handler chain. The store is owned by the
// caller and is not closed by Shutdown.
func New(st store.Store, cfg config.Config, opts Options) *Server {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	s := &Server{
		store:   st,
		journal: opts.Journal,
		cfg:     cfg,
		log:     opts.Logger,
		metrics: m,
	}

	mux := http.NewServeMux()
	s.registerHTTPHandlers(mux)

	// Chain middlewares: Recovery -> RequestID -> Logging -> CORS -> Identity -> Mux.
	// Recovery must be outer-most to catch everything.
	var handler http.Handler = mux
	handler = s.identityMiddleware(handler)
	handler = s.corsMiddleware(handler)
	handler = s.loggingMiddleware(handler)
	handler = s.requestIDMiddleware(handler)
	handler = s.recoveryMiddleware(handler)

	rootMux := http.NewServeMux()
	rootMux.HandleFunc("GET /healthz", s.handleHealthz)
	rootMux.Handle("GET /metrics", m.Handler())
	rootMux.Handle("/", handler)

	s.handler = rootMux
	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: rootMux,
	}
	return s
}

// Handler returns the root handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP until Shutdown is called.
func (s *Server) Run() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded
// by the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
