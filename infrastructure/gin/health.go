package gin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/feedback-api/infrastructure/monitoring"
)

// HealthStatus represents the status of a health check.
type HealthStatus string

const (
	HealthStatusOK        HealthStatus = "ok"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker performs a single dependency check.
type HealthChecker func() CheckResult

// HealthOptions configures the health endpoints.
type HealthOptions struct {
	ServiceName    string
	ServiceVersion string
	Checks         map[string]HealthChecker
}

// RegisterHealthRoutes adds GET/HEAD /health and GET /health/memory.
// A failing critical check turns /health into a 503.
func RegisterHealthRoutes(router *gin.Engine, opts HealthOptions) {
	started := time.Now()

	router.GET("/health", func(c *gin.Context) {
		resp := HealthResponse{
			Status:    HealthStatusOK,
			Service:   opts.ServiceName,
			Version:   opts.ServiceVersion,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(started).Round(time.Second).String(),
		}

		if len(opts.Checks) > 0 {
			resp.Checks = make(map[string]CheckResult, len(opts.Checks))
			for name, check := range opts.Checks {
				result := check()
				resp.Checks[name] = result
				resp.Status = worst(resp.Status, result.Status)
			}
		}

		status := http.StatusOK
		if resp.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, resp)
	})

	router.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/health/memory", func(c *gin.Context) {
		monitoring.MemoryHealthHandler(c.Writer, c.Request)
	})
}

func worst(current, next HealthStatus) HealthStatus {
	switch {
	case next == HealthStatusUnhealthy:
		return HealthStatusUnhealthy
	case next == HealthStatusDegraded && current == HealthStatusOK:
		return HealthStatusDegraded
	default:
		return current
	}
}

// DatabaseHealthChecker reports the database as unhealthy when pingFunc fails.
func DatabaseHealthChecker(pingFunc func() error) HealthChecker {
	return pingChecker(pingFunc, HealthStatusUnhealthy, "Database")
}

// RedisHealthChecker reports Redis as degraded when pingFunc fails; the API
// keeps serving from the database without it.
func RedisHealthChecker(pingFunc func() error) HealthChecker {
	return pingChecker(pingFunc, HealthStatusDegraded, "Redis")
}

func pingChecker(pingFunc func() error, failStatus HealthStatus, name string) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		err := pingFunc()
		latency := time.Since(start).String()

		if err != nil {
			return CheckResult{Status: failStatus, Message: name + " connection failed", Latency: latency}
		}
		return CheckResult{Status: HealthStatusOK, Message: name + " connection OK", Latency: latency}
	}
}
