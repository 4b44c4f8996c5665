// Package handler implements the HTTP handlers of the feedback API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/locking"
	"github.com/jonesrussell/feedback-api/internal/middleware"
	"github.com/jonesrussell/feedback-api/internal/validation"
)

const (
	msgValidationFailed = "Validation failed"
	msgInvalidBody      = "Invalid request body"
	msgBodyTooLarge     = "Request body too large"
	msgInternal         = "Internal server error"
	msgBusy             = "Snapshot is being processed, please retry"
	msgProjectRequired  = "Project context required"
)

// errorWriter renders error responses. Debug exposes internal error text
// in 500 responses.
type errorWriter struct {
	logger infralogger.Logger
	debug  bool
}

func (w errorWriter) fail(c *gin.Context, status int, message string, details any) {
	c.AbortWithStatusJSON(status, domain.NewErrorResponse(message, details))
}

// internal logs err and writes a 500.
func (w errorWriter) internal(c *gin.Context, op string, err error) {
	w.logger.Error(op+" failed",
		infralogger.Error(err),
		infralogger.String("path", c.FullPath()),
		infralogger.String("request_id", c.GetString("request_id")),
	)

	message := msgInternal
	if w.debug {
		message = err.Error()
	}
	w.fail(c, http.StatusInternalServerError, message, nil)
}

// serviceError maps domain errors to responses. notFound is the message
// used for domain.ErrNotFound.
func (w errorWriter) serviceError(c *gin.Context, op string, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		w.fail(c, http.StatusNotFound, notFound, nil)
	case errors.Is(err, domain.ErrAlreadyExists):
		w.fail(c, http.StatusConflict, "Resource already exists", nil)
	case errors.Is(err, domain.ErrInvalidInput):
		w.fail(c, http.StatusBadRequest, msgValidationFailed, []validation.Detail{validation.Field(err.Error())})
	case errors.Is(err, locking.ErrLockTimeout):
		c.Header("Retry-After", "1")
		w.fail(c, http.StatusServiceUnavailable, msgBusy, nil)
	default:
		w.internal(c, op, err)
	}
}

// bindJSON decodes and validates the body into obj. It writes the error
// response and returns false on failure.
func (w errorWriter) bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		w.fail(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge, nil)
		return false
	}

	if details := validation.Details(err); details != nil {
		w.fail(c, http.StatusBadRequest, msgValidationFailed, details)
		return false
	}

	w.fail(c, http.StatusBadRequest, msgInvalidBody, nil)
	return false
}

// project returns the authenticated project or writes a 401.
func (w errorWriter) project(c *gin.Context) (*domain.Project, bool) {
	project, ok := middleware.ProjectFromContext(c)
	if !ok {
		w.fail(c, http.StatusUnauthorized, msgProjectRequired, nil)
		return nil, false
	}
	return project, true
}
