package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/config"
	"github.com/vanshpatelx/Opinex/internal/api/handlers"
	"github.com/vanshpatelx/Opinex/internal/api/middleware"
	"github.com/vanshpatelx/Opinex/internal/metrics"
	"github.com/vanshpatelx/Opinex/internal/services"
	"github.com/vanshpatelx/Opinex/internal/tracing"
)

// Server represents the HTTP server
type Server struct {
	config       config.Config
	router       *gin.Engine
	httpServer   *http.Server
	eventService *services.EventService
	orderService *services.OrderService
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// NewServer creates a new HTTP server. A nil service leaves its routes
// unregistered.
func NewServer(
	cfg config.Config,
	eventService *services.EventService,
	orderService *services.OrderService,
	m *metrics.Metrics,
	tracer tracing.Tracer,
) *Server {
	server := &Server{
		config:       cfg,
		eventService: eventService,
		orderService: orderService,
		metrics:      m,
		tracer:       tracer,
	}

	server.router = server.setupRouter()
	server.httpServer = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.router,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter() *gin.Engine {
	if s.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics(s.metrics))
	router.Use(middleware.NewRelicMiddleware(s.tracer.Application()))

	handlers.NewMetricsHandler(s.metrics).RegisterRoutes(router)

	authorized := router.Group("/")
	authorized.Use(middleware.JWTAuth([]byte(s.config.Auth.JWTSecret)))

	if s.eventService != nil {
		handlers.NewEventHandler(s.eventService).RegisterRoutes(authorized)
	}
	if s.orderService != nil {
		handlers.NewOrderHandler(s.orderService).RegisterRoutes(authorized)
	}

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Info().Str("address", s.config.Server.Address).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}

	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}

	log.Info().Msg("HTTP server shut down successfully")
	return nil
}
