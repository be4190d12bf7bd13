// Package server owns the HTTP listener lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server wraps an http.Server with context-driven shutdown.
type Server struct {
	httpServer *http.Server
}

// New builds a server for addr serving handler.
func New(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}
}

// Start serves until ctx is cancelled or the listener fails, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Logger().Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logging.Logger().Info("server shutting down")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}
