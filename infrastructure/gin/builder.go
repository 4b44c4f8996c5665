package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/feedback-api/infrastructure/logger"
)

// ServerBuilder provides a fluent API for building HTTP servers.
type ServerBuilder struct {
	config       *Config
	logger       logger.Logger
	setupRoutes  func(*gin.Engine)
	healthChecks map[string]HealthChecker
}

// NewServerBuilder creates a builder for the named service.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config:       NewConfig(serviceName, port),
		healthChecks: make(map[string]HealthChecker),
	}
}

// WithLogger sets the logger.
func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

// WithDebug enables or disables debug mode.
func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

// WithVersion sets the service version.
func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

// WithCORSOrigins sets allowed CORS origins.
func (b *ServerBuilder) WithCORSOrigins(origins []string) *ServerBuilder {
	if len(origins) > 0 {
		b.config.CORS.AllowedOrigins = origins
	}
	return b
}

// WithTimeouts sets the read, write and idle timeouts.
func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

// WithShutdownTimeout sets how long in-flight requests get to finish.
func (b *ServerBuilder) WithShutdownTimeout(d time.Duration) *ServerBuilder {
	if d > 0 {
		b.config.ShutdownTimeout = d
	}
	return b
}

// WithHealthCheck adds a named health check.
func (b *ServerBuilder) WithHealthCheck(name string, checker HealthChecker) *ServerBuilder {
	b.healthChecks[name] = checker
	return b
}

// WithDatabaseHealthCheck adds a database health check.
func (b *ServerBuilder) WithDatabaseHealthCheck(pingFunc func() error) *ServerBuilder {
	return b.WithHealthCheck("database", DatabaseHealthChecker(pingFunc))
}

// WithRedisHealthCheck adds a Redis health check.
func (b *ServerBuilder) WithRedisHealthCheck(pingFunc func() error) *ServerBuilder {
	return b.WithHealthCheck("redis", RedisHealthChecker(pingFunc))
}

// WithRoutes sets the route setup function.
func (b *ServerBuilder) WithRoutes(setupRoutes func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setupRoutes
	return b
}

// Build creates the server. Health routes are registered before the
// service routes.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.Must(logger.Config{Development: b.config.Debug})
	}

	opts := HealthOptions{
		ServiceName:    b.config.ServiceName,
		ServiceVersion: b.config.ServiceVersion,
		Checks:         b.healthChecks,
	}

	return NewServer(b.config, b.logger, func(router *gin.Engine) {
		RegisterHealthRoutes(router, opts)
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	})
}
