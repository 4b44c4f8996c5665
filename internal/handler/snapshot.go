package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

const msgSnapshotNotFound = "Snapshot not found"

// SnapshotService is the use case surface used by SnapshotHandler.
type SnapshotService interface {
	ProcessSnapshot(ctx context.Context, projectID string, sub *domain.SnapshotSubmission) (*domain.ChangeDetectionResult, error)
	GetByID(ctx context.Context, projectID, id string) (*domain.Snapshot, error)
	ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Snapshot, error)
}

// SnapshotHandler serves the snapshot endpoints.
type SnapshotHandler struct {
	service SnapshotService
	errorWriter
}

// NewSnapshotHandler creates a SnapshotHandler.
func NewSnapshotHandler(svc SnapshotService, log infralogger.Logger, debug bool) *SnapshotHandler {
	return &SnapshotHandler{
		service:     svc,
		errorWriter: errorWriter{logger: log, debug: debug},
	}
}

// Submit handles POST /snapshots.
func (h *SnapshotHandler) Submit(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	var sub domain.SnapshotSubmission
	if !h.bindJSON(c, &sub) {
		return
	}

	result, err := h.service.ProcessSnapshot(c.Request.Context(), project.ID, &sub)
	if err != nil {
		h.serviceError(c, "Process snapshot", err, msgSnapshotNotFound)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /snapshots/:id.
func (h *SnapshotHandler) Get(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(c, http.StatusNotFound, msgSnapshotNotFound, nil)
		return
	}

	snap, err := h.service.GetByID(c.Request.Context(), project.ID, id)
	if err != nil {
		h.serviceError(c, "Get snapshot", err, msgSnapshotNotFound)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// ListBySession handles GET /sessions/:sessionId/snapshots.
func (h *SnapshotHandler) ListBySession(c *gin.Context) {
	project, ok := h.project(c)
	if !ok {
		return
	}

	snaps, err := h.service.ListBySession(c.Request.Context(), project.ID, c.Param("sessionId"))
	if err != nil {
		h.serviceError(c, "List snapshots", err, msgSnapshotNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"snapshots": snaps,
		"count":     len(snaps),
	})
}
