// README: API gateway; wraps the gin engine in an http.Server with graceful shutdown.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"cargo/internal/http/middleware"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer installs recovery and access logging ahead of the routes.
func NewServer(addr string, deps RouterDeps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := NewRouter(deps, middleware.Recovery(logger), middleware.Logging(logger))
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return eris.Wrap(err, "http: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "http: shutdown")
	}
	s.logger.Info("http server stopped")
	return nil
}
