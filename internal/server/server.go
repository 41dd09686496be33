// Package server exposes the answer engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/eunjujo120/perso-ai-chatbot/internal/config"
	"github.com/eunjujo120/perso-ai-chatbot/internal/ingest"
	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
	"github.com/eunjujo120/perso-ai-chatbot/internal/telemetry"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Answerer resolves a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (qa.Response, error)
}

// Reloader rebuilds the corpus indexes.
type Reloader interface {
	Reload(ctx context.Context, force bool) (ingest.Result, error)
}

// StatsSource provides telemetry snapshots.
type StatsSource interface {
	Snapshot() *telemetry.Snapshot
}

// Server is the HTTP front end.
type Server struct {
	cfg      config.ServerConfig
	answerer Answerer
	reloader Reloader
	stats    StatsSource
	logger   *slog.Logger
	started  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithReloader enables POST /admin/reload.
func WithReloader(r Reloader) Option {
	return func(s *Server) { s.reloader = r }
}

// WithStats enables GET /stats.
func WithStats(src StatsSource) Option {
	return func(s *Server) { s.stats = src }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Server.
func New(cfg config.ServerConfig, answerer Answerer, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		answerer: answerer,
		logger:   slog.Default(),
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /admin/reload", s.requireAdmin(s.handleReload))
	mux.HandleFunc("GET /stats", s.handleStats)

	return s.logRequests(s.cors(mux))
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server_listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
