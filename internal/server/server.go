// Package server wires the catalog components into HTTP servers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/config"
	"github.com/vyrodovalexey/catalog-service/internal/events"
	"github.com/vyrodovalexey/catalog-service/internal/handler"
	"github.com/vyrodovalexey/catalog-service/internal/metrics"
	"github.com/vyrodovalexey/catalog-service/internal/middleware"
	"github.com/vyrodovalexey/catalog-service/internal/service"
	"github.com/vyrodovalexey/catalog-service/internal/store"
)

// Server serves the item API on the main port and probes on the probe port.
type Server struct {
	httpServer  *http.Server
	probeServer *http.Server
	router      *mux.Router
	probeRouter *mux.Router
	config      *config.Config
	logger      *zap.Logger
	store       store.Store
	service     *service.ItemService
	broker      *events.Broker
	wsHandler   *handler.WebSocketHandler
	registry    *prometheus.Registry
}

// New creates a new Server instance around itemStore.
func New(cfg *config.Config, logger *zap.Logger, itemStore store.Store) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		probeRouter: mux.NewRouter(),
		config:      cfg,
		logger:      logger,
		store:       itemStore,
		broker:      events.NewBroker(cfg.WSBufferSize, logger.Named("events")),
		registry:    prometheus.NewRegistry(),
	}

	opts := []service.Option{service.WithPublisher(s.broker)}
	if cfg.MetricsEnabled {
		collector := metrics.NewCatalogCollector(itemStore)
		s.registry.MustRegister(collector)
		opts = append(opts, service.WithRecorder(collector))
	}
	s.service = service.NewItemService(itemStore, logger.Named("service"), opts...)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupProbeRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures the middleware chain.
func (s *Server) setupMiddleware() {
	// First applied is outermost.
	s.router.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.RequestID()))

	if s.config.MetricsEnabled {
		s.router.Use(mux.MiddlewareFunc(middleware.Metrics()))
	}

	s.router.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))
	s.router.Use(mux.MiddlewareFunc(middleware.CORS(s.config.CORSAllowedOrigins)))
}

// setupRoutes configures the API routes.
func (s *Server) setupRoutes() {
	handler.NewRESTHandler(s.service, s.logger).RegisterRoutes(s.router)
	handler.NewProbeHandler(s.store, s.logger).RegisterRoutes(s.router)

	s.wsHandler = handler.NewWebSocketHandler(s.broker, s.logger)
	s.wsHandler.RegisterRoutes(s.router)

	if s.config.MetricsEnabled {
		s.router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	}
}

// setupProbeRoutes configures the probe router. It is built even when the
// probe server is disabled.
func (s *Server) setupProbeRoutes() {
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Recovery(s.logger)))
	s.probeRouter.Use(mux.MiddlewareFunc(middleware.Logging(s.logger)))

	handler.NewProbeHandler(s.store, s.logger).RegisterRoutes(s.probeRouter)

	if s.config.MetricsEnabled {
		s.probeRouter.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	}
}

// metricsHandler serves the process-wide HTTP metrics together with this
// server's catalog metrics.
func (s *Server) metricsHandler() http.Handler {
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, s.registry}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// setupHTTPServer configures the HTTP servers.
func (s *Server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:              s.config.Address(),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	if s.config.ProbePort == 0 {
		return
	}

	s.probeServer = &http.Server{
		Addr:              s.config.ProbeAddress(),
		Handler:           s.probeRouter,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      5 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}
}

// Start starts the probe server, if configured, and then the API server.
// It blocks until the API server stops.
func (s *Server) Start() error {
	if s.probeServer != nil {
		go func() {
			s.logger.Info("starting probe server", zap.String("address", s.config.ProbeAddress()))
			if err := s.probeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("probe server failed", zap.Error(err))
			}
		}()
	}

	s.logger.Info("starting server",
		zap.String("address", s.config.Address()),
		zap.Bool("metrics_enabled", s.config.MetricsEnabled),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen and serve: %w", err)
	}

	return nil
}

// Shutdown closes WebSocket clients and the event feed, then gracefully
// stops both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	s.wsHandler.CloseAllConnections()
	s.broker.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.probeServer != nil {
		if err := s.probeServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("probe server shutdown: %w", err)
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Router returns the API router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ProbeRouter returns the probe router.
func (s *Server) ProbeRouter() *mux.Router {
	return s.probeRouter
}

// Service returns the item service backing the API.
func (s *Server) Service() *service.ItemService {
	return s.service
}

// Broker returns the item change feed.
func (s *Server) Broker() *events.Broker {
	return s.broker
}
