package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/flower-explorer/vistool/internal/catalog"
	"github.com/flower-explorer/vistool/internal/conf"
	"github.com/flower-explorer/vistool/internal/errors"
	"github.com/flower-explorer/vistool/internal/ingest"
	"github.com/flower-explorer/vistool/internal/logger"
	"github.com/flower-explorer/vistool/internal/observability"
)

// Default constants for the HTTP server.
const (
	DefaultListen          = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Server runs the catalog API until its context is cancelled.
type Server struct {
	echo       *echo.Echo
	settings   *conf.Settings
	controller *Controller
	logger     logger.Logger
}

// NewServer builds the echo instance and registers the API routes.
func NewServer(settings *conf.Settings, cat *catalog.Catalog, pipeline *ingest.Pipeline,
	log logger.Logger, m *observability.Metrics) *Server {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	e := echo.New()
	e.Server.ReadTimeout = DefaultReadTimeout
	e.Server.WriteTimeout = DefaultWriteTimeout

	return &Server{
		echo:       e,
		settings:   settings,
		controller: New(e, cat, pipeline, settings, log, m),
		logger:     log.Module("server"),
	}
}

// Address returns the listen address with the default applied.
func (s *Server) Address() string {
	if s.settings.WebServer.Listen == "" {
		return DefaultListen
	}
	return s.settings.WebServer.Listen
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Run serves HTTP until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := s.Address()
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", logger.String("address", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.New(fmt.Errorf("server error: %w", err)).
				Component("api").
				Category(errors.CategoryHTTP).
				Context("address", addr).
				Build()
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	<-errCh
	s.logger.Info("server shutdown complete")
	return nil
}
