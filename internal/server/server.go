package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"engagement-engine/internal/handler"
	"engagement-engine/internal/metrics"
	"engagement-engine/internal/middleware"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP API.
type Server struct {
	router  *gin.Engine
	srv     *http.Server
	logger  *zap.Logger
	handler handler.LearningHandler
	metrics *metrics.Collector
	secret  string
}

// NewServer builds the router. An empty jwtSecret leaves the ingestion routes open.
func NewServer(port, jwtSecret string, h handler.LearningHandler, m *metrics.Collector, logger *zap.Logger) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	s := &Server{
		router:  router,
		logger:  logger,
		handler: h,
		metrics: m,
		secret:  jwtSecret,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes()
	return s
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware())
		s.router.GET("/metrics", s.metrics.Handler())
	}

	s.router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	{
		api.GET("/reports/:session_id", s.handler.GetReport)
		api.GET("/creators/:creator_id/reports", s.handler.GetPeriodReport)
		api.GET("/creators/:creator_id/strategy", s.handler.GetStrategy)
		api.GET("/dashboard", s.handler.GetDashboard)
	}

	ingest := s.router.Group("/api/v1/records")
	if s.secret != "" {
		ingest.Use(middleware.AuthMiddleware(s.secret, s.logger))
	} else {
		s.logger.Warn("server.jwt_secret is empty, record ingestion is unauthenticated")
	}
	{
		ingest.POST("", s.handler.SubmitRecord)
		ingest.POST("/batch", s.handler.SubmitBatch)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
