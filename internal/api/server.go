package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	infragin "github.com/jonesrussell/feedback-api/infrastructure/gin"
	"github.com/jonesrussell/feedback-api/internal/config"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	healthCheckTimeout  = 2 * time.Second
)

// NewServer creates a new HTTP server. redisClient may be nil.
func NewServer(
	cfg *config.Config,
	handlers Handlers,
	opts RouteOptions,
	db *sqlx.DB,
	redisClient *redis.Client,
) *infragin.Server {
	builder := infragin.NewServerBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(opts.Logger).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithCORSOrigins(cfg.Service.CORSOrigins).
		WithDatabaseHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return db.PingContext(ctx)
		})

	if redisClient != nil {
		builder = builder.WithRedisHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return redisClient.Ping(ctx).Err()
		})
	}

	return builder.
		WithRoutes(func(router *gin.Engine) {
			SetupRoutes(router, handlers, opts)
		}).
		Build()
}
