// Package server runs the accept loop for the records API.
//
// net/http serves every connection on its own goroutine, so a slow
// request never blocks the acceptance of the next one. When a client
// disconnects, its request context is cancelled; the store decides what
// that means for work already in progress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aanand-mishra/records-api/internal/config"
)

// Server wraps an *http.Server with a context-driven lifecycle.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// New configures (but does not start) a server for handler.
func New(cfg config.HTTPServer, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.Addr,
			Handler: handler,

			// Production hardening — set timeouts to prevent slow-client attacks.
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
			ErrorLog:     slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             log,
	}
}

// Run binds the configured address and serves until ctx is cancelled.
// A bind failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts
// down gracefully: no new connections are accepted and in-flight requests
// get up to the shutdown timeout to finish. It returns nil on a clean
// stop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)

	go func() {
		s.log.Info("server started", slog.String("address", ln.Addr().String()))

		// Serve returns http.ErrServerClosed once Shutdown is called.
		// That's expected, not an error.
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}
