package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	infrajwt "github.com/jonesrussell/feedback-api/infrastructure/jwt"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/metrics"
)

// AdminKeyHeader carries the static admin key.
const AdminKeyHeader = "X-Admin-Key"

// AdminAuth accepts either the configured admin key in X-Admin-Key or a
// bearer token signed with jwtSecret. Empty credentials are disabled.
func AdminAuth(adminKey, jwtSecret string, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" && jwtSecret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				domain.NewErrorResponse("Admin authentication not configured", nil))
			return
		}

		if adminKey != "" {
			presented := c.GetHeader(AdminKeyHeader)
			if presented != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(adminKey)) == 1 {
				c.Next()
				return
			}
		}

		if jwtSecret != "" {
			if claims, err := infrajwt.ParseBearer(c.GetHeader("Authorization"), jwtSecret); err == nil {
				c.Set("admin_subject", claims.Sub)
				c.Next()
				return
			}
		}

		m.AuthFailed("invalid_admin_credentials")
		c.AbortWithStatusJSON(http.StatusUnauthorized, domain.NewErrorResponse(
			"Invalid admin key", "Include X-Admin-Key header with valid admin API key",
		))
	}
}
