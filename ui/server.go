package ui

import (
	"context"
	"net/http"
	"time"

	"tableserve/app"
	"tableserve/internal"
	"tableserve/internal/config"

	"github.com/gin-gonic/gin"
)

// Server serves the read-only table API
type Server struct {
	router  *gin.Engine
	service *app.TableService
	logger  *internal.Logger
	config  config.ServerConfig
}

// NewServer creates the API server; configuration is read once from cfg
func NewServer(cfg *config.Config, service *app.TableService, logger *internal.Logger) *Server {
	gin.SetMode(cfg.Server.GinMode)

	s := &Server{
		router:  gin.New(),
		service: service,
		logger:  logger,
		config:  cfg.Server,
	}
	// /api/ is a different resource from /api; answer it with a 404 rather than a redirect.
	s.router.RedirectTrailingSlash = false

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("", s.handleListRows)
	api.GET("/values/:index", s.handleRowsByIndex)
	api.HEAD("", s.handleListRows)
	api.HEAD("/values/:index", s.handleRowsByIndex)

	s.router.NoRoute(s.handleNotFound)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address until ctx is canceled
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting table API on %s", s.config.Addr())
	return serve(ctx, s.config.Addr(), s.router, s.config.ShutdownTimeout)
}

// serve runs an HTTP server and drains it within timeout once ctx is done
func serve(ctx context.Context, addr string, handler http.Handler, timeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
