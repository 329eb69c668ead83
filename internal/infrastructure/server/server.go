// Package server wires the conference controller to its host bridge.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	apihttp "github.com/GriffinCanCode/confbridge/internal/api/http"
	"github.com/GriffinCanCode/confbridge/internal/api/middleware"
	"github.com/GriffinCanCode/confbridge/internal/api/webhook"
	"github.com/GriffinCanCode/confbridge/internal/api/ws"
	"github.com/GriffinCanCode/confbridge/internal/domain/engine"
	"github.com/GriffinCanCode/confbridge/internal/domain/gateway"
	"github.com/GriffinCanCode/confbridge/internal/domain/permission"
	"github.com/GriffinCanCode/confbridge/internal/domain/router"
	"github.com/GriffinCanCode/confbridge/internal/domain/session"
	"github.com/GriffinCanCode/confbridge/internal/domain/view"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/config"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/logging"
	"github.com/GriffinCanCode/confbridge/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/confbridge/internal/shared/types"
	"github.com/GriffinCanCode/confbridge/internal/simulator"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	engine     *gin.Engine
	controller *session.Controller
	events     *router.Router
	hub        *ws.Hub
	notifier   *webhook.Notifier
	runtime    *simulator.Runtime
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing conference bridge",
		zap.String("port", cfg.Server.Port),
		zap.Bool("auto_grant", cfg.Permissions.AutoGrant),
		zap.Duration("connect_latency", cfg.Engine.ConnectLatency),
	)

	// Metrics first, every component records into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	simOpts := []simulator.Option{
		simulator.WithConnectLatency(cfg.Engine.ConnectLatency),
		simulator.WithLogger(logger),
	}
	if cfg.Engine.FailInit {
		simOpts = append(simOpts, simulator.WithInitError(errors.New("runtime bring-up disabled by configuration")))
	}
	runtime := simulator.New(simOpts...)

	events := router.New(logger).WithMetrics(metrics)
	controller, err := session.NewController(session.Deps{
		Router:      events,
		Gateway:     gateway.New().WithLogger(logger).WithMetrics(metrics),
		Lifecycle:   engine.NewLifecycle(runtime).WithLogger(logger).WithMetrics(metrics),
		Permissions: permission.NewGate(permission.NewStaticPrompter(cfg.Permissions.AutoGrant), logger),
		Views:       view.NewManager(logger),
		Logger:      logger,
		Metrics:     metrics,
	}, session.Config{
		DebugLogFilter:   cfg.Engine.DebugLogFilter,
		ReleaseLogFilter: cfg.Engine.ReleaseLogFilter,
	})
	if err != nil {
		runtime.Close()
		events.Close()
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	hub := ws.NewHub(logger).WithMetrics(metrics)

	var notifier *webhook.Notifier
	if cfg.Webhook.URL != "" {
		notifier, err = webhook.New(webhook.Config{
			URL:              cfg.Webhook.URL,
			Timeout:          cfg.Webhook.Timeout,
			Retries:          cfg.Webhook.Retries,
			QueueSize:        cfg.Webhook.QueueSize,
			FailureThreshold: cfg.Webhook.FailureThreshold,
			Cooldown:         cfg.Webhook.Cooldown,
		}, logger, metrics)
		if err != nil {
			_ = controller.Shutdown(context.Background())
			events.Close()
			runtime.Close()
			return nil, fmt.Errorf("failed to create webhook: %w", err)
		}
	}

	controller.Subscribe(func(ev types.Event) {
		hub.Publish(ev)
		if notifier != nil {
			notifier.Publish(ev)
		}
	})

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(logger))
	r.Use(monitoring.Middleware(metrics))
	r.Use(middleware.CORS(cfg.Server.AllowOrigins))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		r.Use(middleware.RateLimit(limits))
	}

	apihttp.NewHandlers(controller, logger).Register(r)
	apihttp.NewMetricsHandlers(metrics, registry).Register(r)
	r.GET("/events", hub.HandleConnection)

	logger.Info("Server initialized successfully")

	return &Server{
		engine:     r,
		controller: controller,
		events:     events,
		hub:        hub,
		notifier:   notifier,
		runtime:    runtime,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Controller returns the session controller
func (s *Server) Controller() *session.Controller {
	return s.controller
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = s.Close(ctx)
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if limit := s.config.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.Int("max_connections", s.config.Server.MaxConnections),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	return s.Close(shutdownCtx)
}

// Close releases the session, the event stream and the engine
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.controller.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Failed to close session", zap.Error(err))
	}
	s.hub.Close()
	s.events.Close()
	if s.notifier != nil {
		s.notifier.Close(ctx)
	}
	s.runtime.Close()

	_ = s.logger.Sync()
	return err
}
