// Package api exposes the public service API over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/parleyhq/parley/internal/app"
	"github.com/parleyhq/parley/internal/audio"
	"github.com/parleyhq/parley/internal/message"
	"github.com/parleyhq/parley/pkg/files"
	"github.com/parleyhq/parley/pkg/metrics"
)

// Server represents the API server
type Server struct {
	router     *gin.Engine
	logger     *zap.Logger
	appSvc     app.AppService
	messageSvc message.MessageService
	audioSvc   audio.AudioService
	signer     *files.Signer
	sanitizer  *bluemonday.Policy
}

// NewServer creates a new API server with injected service interfaces
func NewServer(
	logger *zap.Logger,
	appSvc app.AppService,
	messageSvc message.MessageService,
	audioSvc audio.AudioService,
	signer *files.Signer,
) *Server {
	server := &Server{
		logger:     logger,
		appSvc:     appSvc,
		messageSvc: messageSvc,
		audioSvc:   audioSvc,
		signer:     signer,
		sanitizer:  bluemonday.StrictPolicy(),
	}

	router := gin.New()

	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("parley-service-api"))
	router.Use(metricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	server.router = router
	server.registerRoutes()
	return server
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting service API", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.Use(s.appTokenAuth())
	{
		v1.GET("/messages", s.listMessages)
		v1.POST("/messages/:message_id/feedbacks", s.createMessageFeedback)
		v1.GET("/messages/:message_id/suggested", s.suggestedQuestions)
		v1.GET("/app/feedbacks", s.listAppFeedbacks)

		v1.POST("/audio-to-text", s.audioToText)
		v1.POST("/text-to-audio", s.textToAudio)
	}
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now(),
	})
}

// metricsMiddleware records HTTP request counts and durations for Prometheus
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(path, method).Observe(time.Since(start).Seconds())
	}
}
