package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/canvas-mcp/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end with graceful shutdown.
type Server struct {
	http       *http.Server
	transports *Transports
	logger     zerolog.Logger
}

// NewServer wires the router for s onto addr. opts.Logger is replaced by
// the component logger.
func NewServer(addr string, s *server.MCPServer, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := logging.NewLogger("http-server")
	opts.Logger = logger
	transports := NewTransports(s)

	if opts.APIKey == "" {
		logger.Warn().Msg("API_KEY is not set; the HTTP endpoints are unprotected")
	}

	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(s, transports, opts),
			ReadHeaderTimeout: 10 * time.Second,
		},
		transports: transports,
		logger:     logger,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is done, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("address", s.http.Addr).
			Str("sse", PathSSE).
			Str("message", PathMessage).
			Str("streamable", PathStreamable).
			Msg("Starting HTTP server")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.transports.SSE.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown sse: %w", err))
	}
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http: %w", err))
	}
	return errors.Join(errs...)
}
