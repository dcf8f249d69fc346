// Package server exposes the injection pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/pkg/logger"
)

const (
	APIBasePath     = "/api/v0"
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	config     *config.ServerConfig
	components *Components
	router     *gin.Engine
}

func NewServer(cfg *config.ServerConfig, components *Components) *Server {
	if cfg == nil {
		cfg = &config.Default().Server
	}
	s := &Server{config: cfg, components: components}
	s.router = s.buildRouter()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware())

	if mon := s.components.Monitoring; mon != nil && mon.Enabled() {
		router.Use(mon.Middleware())
		router.GET(mon.Path(), gin.WrapH(mon.Handler()))
	}
	RegisterRoutes(router.Group(APIBasePath), s.components)
	return router
}

// Address is the host:port the server listens on.
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)
	timeout := s.config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	srv := &http.Server{
		Addr:              s.Address(),
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
		IdleTimeout:       2 * timeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", fmt.Sprintf("http://%s", s.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Debug("Received shutdown signal, initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := s.components.Stop(shutdownCtx); err != nil {
		log.Warn("Failed to stop monitoring", "error", err)
	}
	log.Info("Server shutdown completed successfully")
	return nil
}
