package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/validation"
)

const msgFeedbackNotFound = "Feedback not found"

// FeedbackService is the use case surface used by FeedbackHandler.
type FeedbackService interface {
	Create(ctx context.Context, projectID string, sub *domain.FeedbackSubmission) (*domain.SubmissionResult, error)
	GetByID(ctx context.Context, projectID, id string) (*domain.Feedback, error)
	ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Feedback, error)
}

// FeedbackHandler serves the feedback endpoints.
type FeedbackHandler struct {
	service FeedbackService
	errorWriter
}

// NewFeedbackHandler creates a FeedbackHandler.
func NewFeedbackHandler(svc FeedbackService, log infralogger.Logger, debug bool) *FeedbackHandler {
	return &FeedbackHandler{
		service:     svc,
		errorWriter: errorWriter{logger: log, debug: debug},
	}
}

// Create handles POST /feedback.
func (h *FeedbackHandler) Create(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	var sub domain.FeedbackSubmission
	if !h.bindJSON(c, &sub) {
		return
	}
	if _, err := sub.Response.ValueKind(); err != nil {
		h.fail(c, http.StatusBadRequest, msgValidationFailed, []validation.Detail{
			validation.Field("Expected string, number, or array of strings", "response", "value"),
		})
		return
	}

	result, err := h.service.Create(c.Request.Context(), project.ID, &sub)
	if err != nil {
		h.serviceError(c, "Create feedback", err, msgFeedbackNotFound)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /feedback/:id.
func (h *FeedbackHandler) Get(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(c, http.StatusNotFound, msgFeedbackNotFound, nil)
		return
	}

	fb, err := h.service.GetByID(c.Request.Context(), project.ID, id)
	if err != nil {
		h.serviceError(c, "Get feedback", err, msgFeedbackNotFound)
		return
	}

	c.JSON(http.StatusOK, fb)
}

// ListBySession handles GET /sessions/:sessionId/feedback.
func (h *FeedbackHandler) ListBySession(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	items, err := h.service.ListBySession(c.Request.Context(), project.ID, c.Param("sessionId"))
	if err != nil {
		h.serviceError(c, "List feedback", err, msgFeedbackNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"feedback": items,
		"count":    len(items),
	})
}
