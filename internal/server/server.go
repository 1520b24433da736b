package server

import (
	"log/slog"
	"net/http"
	"sync"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/atlasflow/engine/internal/config"
	"github.com/atlasflow/engine/internal/engine"
	"github.com/atlasflow/engine/pkg/util"
)

// Server implements the HTTP API for the run engine
type Server struct {
	engine  *engine.Engine
	redis   *redis.Client
	logger  *slog.Logger
	sockets util.Set[*Client]
	mu      sync.Mutex
}

// NewServer creates the HTTP API server. The redis client is used only
// for the health probe; run state flows through the engine
func NewServer(
	eng *engine.Engine, cfg *config.Config, logger *slog.Logger,
) *Server {
	return &Server{
		engine: eng,
		logger: logger,
		redis: redis.NewClient(&redis.Options{
			Addr:     cfg.RunStore.Addr,
			Password: cfg.RunStore.Password,
			DB:       cfg.RunStore.DB,
		}),
		sockets: util.Set[*Client]{},
	}
}

// SetupRoutes configures and returns the HTTP router with all API
// endpoints
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(_ *gin.Context, _ *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)

	eng := router.Group("/engine")
	{
		eng.GET("/steps", s.listSteps)
		eng.GET("/plan", s.handlePlanPreview)

		eng.GET("/runs", s.listRuns)
		eng.POST("/runs", s.startRun)
		eng.GET("/runs/:runID", s.getRun)
		eng.GET("/runs/:runID/result", s.getRunResult)
		eng.POST("/runs/:runID/abort", s.abortRun)

		eng.GET("/ws", s.handleWebSocket)
	}

	return router
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes all active WebSocket connections
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Close releases server resources
func (s *Server) Close() error {
	s.CloseWebSockets()
	return s.redis.Close()
}
