package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sentinal-social/config"
	"sentinal-social/internal/handler"
	"sentinal-social/internal/middleware"
	"sentinal-social/internal/services"
	"sentinal-social/internal/transport/httpdto"
	"sentinal-social/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Threads     *handler.ThreadHandler
	Connections *handler.ConnectionHandler
}

func NewHandlers(messaging *services.MessagingService) *Handlers {
	return &Handlers{
		Threads:     handler.NewThreadHandler(messaging),
		Connections: handler.NewConnectionHandler(messaging),
	}
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteOptions carries the collaborators the route table needs besides
// handlers. Limiter and Health are optional.
type RouteOptions struct {
	Identity   *services.IdentityService
	Limiter    middleware.Limiter
	RateLimit  int
	RateWindow time.Duration
	Health     Pinger
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router for httptest.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, opts RouteOptions) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(err.Error(), "UNHEALTHY"))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	v1 := s.engine.Group("/v1")
	v1.Use(middleware.AuthMiddleware(opts.Identity))
	if opts.Limiter != nil {
		v1.Use(middleware.RateLimitMiddleware(opts.Limiter, opts.RateLimit, opts.RateWindow, s.logger))
	}

	threads := v1.Group("/threads")
	{
		threads.GET("", handlers.Threads.List)
		threads.POST("", handlers.Threads.CreateGroup)
		threads.GET("/:id", handlers.Threads.Get)
		threads.GET("/:id/messages", handlers.Threads.Messages)
		threads.POST("/:id/messages", handlers.Threads.Send)
		threads.POST("/:id/open", handlers.Threads.Open)
		threads.POST("/:id/read", handlers.Threads.MarkRead)
	}
	v1.GET("/unread", handlers.Threads.Unread)

	requests := v1.Group("/connection-requests")
	{
		requests.POST("", handlers.Connections.Submit)
		requests.GET("/incoming", handlers.Connections.Incoming)
		requests.GET("/outgoing", handlers.Connections.Outgoing)
		requests.POST("/:id/accept", handlers.Connections.Accept)
		requests.POST("/:id/decline", handlers.Connections.Decline)
	}

	v1.GET("/connections", handlers.Connections.List)

	relationships := v1.Group("/relationships")
	{
		relationships.GET("/:user_id", handlers.Connections.Relationship)
		relationships.POST("/:user_id/block", handlers.Connections.Block)
		relationships.DELETE("/:user_id/block", handlers.Connections.Unblock)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}
