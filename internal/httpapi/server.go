package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"finance-ledger-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

// Server owns the HTTP listener.
type Server struct {
	cfg      models.ServerConfig
	http     *http.Server
	listener net.Listener
	done     chan error
}

func NewServer(cfg models.ServerConfig, handler http.Handler) *Server {
	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:         cfg.Address,
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		done: make(chan error, 1),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	if s.cfg.MaxConnections > 0 {
		listener = netutil.LimitListener(listener, s.cfg.MaxConnections)
	}
	s.listener = listener

	zap.L().Info("HTTP server listening",
		zap.String("address", listener.Addr().String()),
		zap.Int("max_connections", s.cfg.MaxConnections))

	go func() {
		err := s.http.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done reports the serve loop's exit error.
func (s *Server) Done() <-chan error {
	return s.done
}

// Stop drains in-flight requests until ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	zap.L().Info("Shutting down HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
