// Package server exposes the engine over HTTP: a small JSON API for
// job control, a Prometheus metrics endpoint, and a websocket stream
// of engine events that also accepts answer frames.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ShayCichocki/anvil/internal/orchestrator"
)

// Server serves the job control API for one engine.
type Server struct {
	engine *orchestrator.Engine
	router *gin.Engine
	hub    *hub
	logger *zap.Logger
	http   *http.Server
}

// New builds a Server around the engine. The registry backs the
// /metrics endpoint and should be the same one passed to the engine
// via WithMetrics.
func New(engine *orchestrator.Engine, registry *prometheus.Registry, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		router: router,
		hub:    newHub(engine, logger),
		logger: logger,
	}

	router.GET("/healthz", s.handleHealth)
	if registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/jobs", s.handleStartJob)
		v1.GET("/jobs", s.handleListJobs)
		v1.GET("/jobs/:id", s.handleGetJob)
		v1.DELETE("/jobs/:id", s.handleCancelJob)
		v1.POST("/jobs/:id/answers", s.handleSubmitAnswer)
		v1.POST("/jobs/:id/feedback", s.handleSubmitFeedback)
		v1.GET("/events", s.hub.handleWebsocket)
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down
// gracefully. The websocket hub starts consuming engine events here.
func (s *Server) Run(ctx context.Context, addr string) error {
	go s.hub.run(ctx)

	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
