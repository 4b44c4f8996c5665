package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

// BodyLimit rejects bodies declared larger than maxBytes and caps reads of
// the rest, so handlers see *http.MaxBytesError when a body overruns.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, domain.NewErrorResponse("Request body too large", nil))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
