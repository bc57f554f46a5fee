package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server manages the HTTP listener lifecycle for the development backend.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// NewServer creates an HTTP server for handler bound to the configured address.
func NewServer(p Params, handler http.Handler, logger *zap.Logger) *Server {
	addr := p.ListenAddr
	if addr == "" {
		addr = p.Config.Server.ListenAddr
	}
	return &Server{
		httpServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		addr:   addr,
		logger: logger,
	}
}

// Listen binds the listen address so startup fails fast when it is taken.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Serve handles requests until Stop. Blocks.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server not listening")
	}
	s.logger.Info("http server starting", zap.String("addr", s.Addr()))
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop performs a graceful shutdown bounded by ctx.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("http server shutdown", zap.Error(err))
	}
}
