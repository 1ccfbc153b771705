// Package server exposes the chronicle API over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chronicle-kb/chronicle"
	"github.com/chronicle-kb/chronicle/pkg/config"
	"github.com/chronicle-kb/chronicle/pkg/server/handlers"
)

// Server represents the HTTP server.
type Server struct {
	config *config.Config
	router *gin.Engine
	kb     *chronicle.Client
	server *http.Server
}

// New creates a new server instance.
func New(cfg *config.Config, kb *chronicle.Client) *Server {
	return &Server{
		config: cfg,
		kb:     kb,
	}
}

// Setup sets up the server routes and middleware.
func (s *Server) Setup() {
	gin.SetMode(s.config.Server.Mode)

	s.router = gin.New()

	s.router.Use(gin.Logger())
	s.router.Use(gin.Recovery())
	s.router.Use(corsMiddleware())

	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

// setupRoutes sets up all the routes.
func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.kb)
	entityHandler := handlers.NewEntityHandler(s.kb)
	factHandler := handlers.NewFactHandler(s.kb)
	queryHandler := handlers.NewQueryHandler(s.kb)

	// Health endpoints
	s.router.GET("/health", healthHandler.HealthCheck)
	s.router.GET("/ready", healthHandler.ReadinessCheck)
	s.router.GET("/live", healthHandler.LivenessCheck)
	s.router.GET("/health/detailed", healthHandler.DetailedHealthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		entities := v1.Group("/entities")
		{
			entities.POST("/resolve", entityHandler.Resolve)
			entities.POST("/merge", entityHandler.Merge)
			entities.POST("/auto-merge", entityHandler.AutoMerge)
			entities.GET("/duplicates", entityHandler.Duplicates)
			entities.GET("/:id", entityHandler.Get)
			entities.POST("/:id/split", entityHandler.Split)
			entities.GET("/:id/timeline", entityHandler.Timeline)
		}

		facts := v1.Group("/facts")
		{
			facts.POST("", factHandler.Create)
			facts.POST("/synthesize", factHandler.Synthesize)
			facts.GET("/:id", factHandler.Get)
			facts.POST("/:id/supersede", factHandler.Supersede)
			facts.POST("/:id/corroborate", factHandler.Corroborate)
			facts.POST("/:id/invalidate", factHandler.Invalidate)
		}

		ingest := v1.Group("/ingest")
		{
			ingest.POST("/text", queryHandler.IngestText)
			ingest.POST("/batch", queryHandler.IngestBatch)
		}

		query := v1.Group("/query")
		{
			query.POST("/at", queryHandler.FactsAt)
			query.GET("/current", queryHandler.Current)
			query.POST("/diff", queryHandler.Diff)
		}

		v1.POST("/search", queryHandler.Search)
		v1.GET("/conflicts", factHandler.Conflicts)
		v1.POST("/conflicts/resolve", factHandler.ResolveConflict)
	}
}

// Start starts the server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
