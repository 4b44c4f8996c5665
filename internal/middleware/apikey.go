// Package middleware holds the request guards of the feedback API.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/metrics"
)

const (
	// APIKeyHeader carries the project API key.
	APIKeyHeader = "X-API-Key"

	projectContextKey = "feedback.project"
)

// ProjectLookup resolves an API key to its project.
type ProjectLookup interface {
	Lookup(ctx context.Context, apiKey string) (*domain.Project, error)
}

// APIKeyOptions controls origin admission.
type APIKeyOptions struct {
	// AllowMissingOrigin admits callers that send no Origin header.
	AllowMissingOrigin bool
	// SkipOriginValidation disables both origin checks.
	SkipOriginValidation bool
}

// APIKeyAuth authenticates the project by API key and checks the request
// origin against the project's allowed origins.
func APIKeyAuth(lookup ProjectLookup, opts APIKeyOptions, m *metrics.Metrics, log infralogger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(APIKeyHeader)
		if apiKey == "" {
			m.AuthFailed("missing_api_key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewErrorResponse(
				"API key required", "Include X-API-Key header with your project's API key",
			))
			return
		}

		project, err := lookup.Lookup(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				m.AuthFailed("invalid_api_key")
				c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewErrorResponse(
					"Invalid API key", "The provided API key does not match any project",
				))
				return
			}
			log.Error("Project lookup failed", infralogger.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, domain.NewErrorResponse(
				"Internal server error", "Failed to validate API key",
			))
			return
		}

		origin := c.GetHeader("Origin")
		switch {
		case opts.SkipOriginValidation:
		case origin == "" && !opts.AllowMissingOrigin:
			m.AuthFailed("missing_origin")
			c.AbortWithStatusJSON(http.StatusForbidden, domain.NewErrorResponse(
				"Origin header required", "Browser requests must include an Origin header",
			))
			return
		case origin != "" && !project.AllowsOrigin(origin):
			m.AuthFailed("origin_not_allowed")
			log.Warn("Origin rejected",
				infralogger.String("project_id", project.ID),
				infralogger.String("origin", origin),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, domain.NewErrorResponse(
				"Origin not allowed",
				fmt.Sprintf("The origin '%s' is not in the allowed origins list for this project", origin),
			))
			return
		}

		c.Set(projectContextKey, project)
		c.Next()
	}
}

// ProjectFromContext returns the project set by APIKeyAuth.
func ProjectFromContext(c *gin.Context) (*domain.Project, bool) {
	value, ok := c.Get(projectContextKey)
	if !ok {
		return nil, false
	}
	project, ok := value.(*domain.Project)
	return project, ok
}

// SetProject stores project as the authenticated project of c.
func SetProject(c *gin.Context, project *domain.Project) {
	c.Set(projectContextKey, project)
}
