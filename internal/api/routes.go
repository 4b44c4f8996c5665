// Package api assembles the route table and the HTTP server.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/config"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/handler"
	"github.com/jonesrussell/feedback-api/internal/metrics"
	"github.com/jonesrussell/feedback-api/internal/middleware"
)

// Handlers groups the endpoint handlers.
type Handlers struct {
	Feedback *handler.FeedbackHandler
	Snapshot *handler.SnapshotHandler
	Project  *handler.ProjectHandler
}

// RouteOptions carries what the middleware chain needs.
type RouteOptions struct {
	Lookup       middleware.ProjectLookup
	APIKey       middleware.APIKeyOptions
	AdminKey     string
	JWTSecret    string
	RateLimit    config.RateLimitConfig
	MaxBodyBytes int64
	Metrics      *metrics.Metrics
	// Gatherer backs /metrics. The endpoint is not registered when nil.
	Gatherer prometheus.Gatherer
	Logger   infralogger.Logger
	// Done stops the rate limiter sweepers when closed.
	Done <-chan struct{}
}

// SetupRoutes configures all API routes.
// Health routes are registered by the infrastructure gin builder.
func SetupRoutes(router *gin.Engine, h Handlers, opts RouteOptions) {
	router.Use(opts.Metrics.Middleware())

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler(opts.Gatherer)))
	}

	general := middleware.RateLimiter(middleware.LimiterGeneral, opts.RateLimit.GeneralPerMinute, opts.Done, opts.Metrics)
	feedbackLimit := middleware.RateLimiter(middleware.LimiterFeedback, opts.RateLimit.FeedbackPerMinute, opts.Done, opts.Metrics)
	snapshotLimit := middleware.RateLimiter(middleware.LimiterSnapshot, opts.RateLimit.SnapshotPerMinute, opts.Done, opts.Metrics)

	// Embed-facing routes authenticated by project API key
	public := router.Group("")
	public.Use(general)
	public.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	public.Use(middleware.APIKeyAuth(opts.Lookup, opts.APIKey, opts.Metrics, opts.Logger))
	{
		public.POST("/feedback", feedbackLimit, h.Feedback.Create)
		public.GET("/feedback/:id", h.Feedback.Get)
		public.POST("/snapshots", snapshotLimit, h.Snapshot.Submit)
		public.GET("/snapshots/:id", h.Snapshot.Get)
		public.GET("/sessions/:sessionId/feedback", h.Feedback.ListBySession)
		public.GET("/sessions/:sessionId/snapshots", h.Snapshot.ListBySession)
	}

	// Project administration
	projects := router.Group("/projects")
	projects.Use(general)
	projects.Use(middleware.BodyLimit(opts.MaxBodyBytes))
	projects.Use(middleware.AdminAuth(opts.AdminKey, opts.JWTSecret, opts.Metrics))
	{
		projects.POST("", h.Project.Create)
		projects.GET("", h.Project.List)
		projects.GET("/:id", h.Project.Get)
		projects.PATCH("/:id", h.Project.Update)
		projects.DELETE("/:id", h.Project.Delete)
		projects.POST("/:id/origins", h.Project.AddOrigin)
		projects.DELETE("/:id/origins/:originId", h.Project.RemoveOrigin)
		projects.POST("/:id/rotate-key", h.Project.RotateKey)
		projects.GET("/:id/stats", h.Project.Stats)
		projects.DELETE("/:id/feedback", h.Project.ClearFeedback)
		projects.DELETE("/:id/snapshots", h.Project.ClearSnapshots)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, domain.NewErrorResponse("Not found", nil))
	})
}
