package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"example.com/fieldops/services/delivery/api/handlers"
	"example.com/fieldops/services/delivery/api/middleware"
	"example.com/fieldops/services/delivery/api/routes"
	"example.com/fieldops/services/delivery/config"
	"example.com/fieldops/services/delivery/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and its router
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	log        *logrus.Logger
}

// ServerConfig holds the dependencies of the HTTP server
type ServerConfig struct {
	Config             *config.Config
	Repository         repository.DeliveryRepository
	DeliveryHandler    *handlers.DeliveryHandler
	AnswerSheetHandler *handlers.AnswerSheetHandler
	HealthHandler      *handlers.HealthHandler
	NewRelicApp        *newrelic.Application
	Logger             *logrus.Logger
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(cfg ServerConfig) *Server {
	if cfg.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.NewRelicApp != nil {
		router.Use(middleware.NewRelicMiddleware(cfg.NewRelicApp))
	}
	router.Use(middleware.Logger(cfg.Logger))

	routes.SetupRoutes(
		router,
		cfg.Repository,
		cfg.DeliveryHandler,
		cfg.AnswerSheetHandler,
		cfg.HealthHandler,
		cfg.Logger,
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Config.Server.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router: router,
		log:    cfg.Logger,
	}
}

// Router exposes the underlying gin engine, used by tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins listening for requests. It blocks until the server stops.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
