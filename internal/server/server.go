package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/api/middleware"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/backend"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/capture"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/conversation"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/formatter"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/config"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/logging"
	"github.com/GriffinCanCode/FaultMaven/sidebar/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config  *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics

	router     *gin.Engine
	httpServer *http.Server

	client     *backend.Client
	fetcher    *capture.Fetcher
	formatter  *formatter.Formatter
	controller *conversation.Controller
	hub        *ws.Hub
}

// New creates a new server instance. logger may be nil.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = logging.OrNop(logger)

	logger.Info("Initializing FaultMaven sidebar",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("backend", cfg.Backend.URL),
		zap.Bool("sanitize", cfg.Formatter.Sanitize),
	)

	metrics := monitoring.NewMetrics()

	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.Backend.Timeout,
		RetryCount:        cfg.Backend.RetryCount,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		UserAgent:         cfg.Backend.UserAgent,
		BreakerFailures:   cfg.Backend.BreakerFailures,
		BreakerCooldown:   cfg.Backend.BreakerCooldown,
	}, logger, metrics)

	fetcher := capture.NewFetcher(capture.FetcherConfig{
		Timeout:   cfg.Capture.Timeout,
		MaxBytes:  cfg.Capture.MaxBytes,
		UserAgent: cfg.Backend.UserAgent,
	}, logger, metrics)

	var opts []formatter.Option
	if cfg.Formatter.Sanitize {
		opts = append(opts, formatter.WithDefaultSanitizer())
	}
	f := formatter.New(opts...)

	hub := ws.NewHub(logger, metrics)
	controller := conversation.NewController(client, f, fetcher, hub, logger, conversation.WithMetrics(metrics))
	hub.SetHistory(controller.History)
	hub.SetAsker(controller)

	s := &Server{
		config:     cfg,
		logger:     logger,
		metrics:    metrics,
		client:     client,
		fetcher:    fetcher,
		formatter:  f,
		controller: controller,
		hub:        hub,
	}
	s.router = s.setupRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func (s *Server) setupRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(s.logger))
	router.Use(monitoring.Middleware(s.metrics))

	cors := middleware.DefaultCORSConfig()
	if len(s.config.CORS.AllowOrigins) > 0 {
		cors.AllowOrigins = s.config.CORS.AllowOrigins
	}
	router.Use(middleware.CORS(cors))

	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: float64(s.config.RateLimit.RequestsPerSecond),
			Burst:             s.config.RateLimit.Burst,
		}))
	}

	router.GET("/", s.handleIndex)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/stream", s.hub.HandleConnection)

	api := router.Group("/api")
	{
		api.POST("/query", s.handleQuery)
		api.POST("/data", s.handleData)
		api.POST("/upload", s.handleUpload)
		api.POST("/page", s.handlePage)
		api.POST("/source", s.handleSource)
		api.POST("/conversation/new", s.handleNewConversation)
		api.GET("/history", s.handleHistory)
		api.POST("/format", s.handleFormat)
	}

	return router
}

// Handler returns the root handler. Responses are gzipped unless the request is a WebSocket upgrade.
func (s *Server) Handler() http.Handler {
	gz := gzhttp.GzipHandler(s.router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			s.router.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	})
}

// Controller returns the conversation controller.
func (s *Server) Controller() *conversation.Controller {
	return s.controller
}

// Run starts the HTTP server and blocks until it stops. A server stopped by Close returns nil.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	s.hub.Close()

	var err error
	if err = s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
		err = fmt.Errorf("failed to shut down http server: %w", err)
	}

	// Sync logger before exit
	_ = s.logger.Sync()

	return err
}
