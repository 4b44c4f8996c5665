package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

const (
	msgProjectNotFound  = "Project not found"
	msgOriginNotFound   = "Origin not found"
	msgOriginExists     = "Origin already exists"
	msgInvalidProjectID = "Invalid project ID format"
)

// ProjectService is the administration surface used by ProjectHandler.
type ProjectService interface {
	Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
	Rename(ctx context.Context, id, name string) (*domain.Project, error)
	Delete(ctx context.Context, id string) error
	AddOrigin(ctx context.Context, projectID, origin string) (*domain.AllowedOrigin, error)
	RemoveOrigin(ctx context.Context, projectID, originID string) error
	RotateKey(ctx context.Context, id string) (*domain.Project, error)
	Stats(ctx context.Context, id string) (*domain.ProjectStats, error)
}

// Clearer bulk-deletes one kind of project data.
type Clearer interface {
	Clear(ctx context.Context, projectID string) (int64, error)
}

// ProjectHandler serves the admin project endpoints.
type ProjectHandler struct {
	projects  ProjectService
	feedback  Clearer
	snapshots Clearer
	errorWriter
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(
	projects ProjectService,
	feedback, snapshots Clearer,
	log infralogger.Logger,
	debug bool,
) *ProjectHandler {
	return &ProjectHandler{
		projects:    projects,
		feedback:    feedback,
		snapshots:   snapshots,
		errorWriter: errorWriter{logger: log, debug: debug},
	}
}

// projectID returns the :id parameter or writes a 400 when it is not a UUID.
func (h *ProjectHandler) projectID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.fail(c, http.StatusBadRequest, msgInvalidProjectID, nil)
		return "", false
	}
	return id, true
}

// Create handles POST /projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req domain.CreateProjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Create(c.Request.Context(), &req)
	if err != nil {
		h.serviceError(c, "Create project", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "project": project})
}

// List handles GET /projects.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.List(c.Request.Context())
	if err != nil {
		h.internal(c, "List projects", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "projects": projects, "count": len(projects)})
}

// Get handles GET /projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	project, err := h.projects.Get(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Get project", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

// Update handles PATCH /projects/:id.
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	var req domain.UpdateProjectRequest
	if !h.bindJSON(c, &req) {
		return
	}

	project, err := h.projects.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		h.serviceError(c, "Update project", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "project": project})
}

// Delete handles DELETE /projects/:id.
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		h.serviceError(c, "Delete project", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AddOrigin handles POST /projects/:id/origins.
func (h *ProjectHandler) AddOrigin(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	var req domain.AddOriginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	origin, err := h.projects.AddOrigin(c.Request.Context(), id, req.Origin)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			h.fail(c, http.StatusConflict, msgOriginExists, nil)
			return
		}
		h.serviceError(c, "Add origin", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "origin": origin})
}

// RemoveOrigin handles DELETE /projects/:id/origins/:originId.
func (h *ProjectHandler) RemoveOrigin(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	originID := c.Param("originId")
	if _, err := uuid.Parse(originID); err != nil {
		h.fail(c, http.StatusNotFound, msgOriginNotFound, nil)
		return
	}

	// The project lookup runs first, so ErrNotFound from the removal itself
	// means the origin is missing.
	if _, err := h.projects.Get(c.Request.Context(), id); err != nil {
		h.serviceError(c, "Remove origin", err, msgProjectNotFound)
		return
	}
	if err := h.projects.RemoveOrigin(c.Request.Context(), id, originID); err != nil {
		h.serviceError(c, "Remove origin", err, msgOriginNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// RotateKey handles POST /projects/:id/rotate-key.
func (h *ProjectHandler) RotateKey(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	project, err := h.projects.RotateKey(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Rotate API key", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "apiKey": project.APIKey})
}

// Stats handles GET /projects/:id/stats.
func (h *ProjectHandler) Stats(c *gin.Context) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	stats, err := h.projects.Stats(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Project stats", err, msgProjectNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// ClearFeedback handles DELETE /projects/:id/feedback.
func (h *ProjectHandler) ClearFeedback(c *gin.Context) {
	h.clear(c, "Clear feedback", h.feedback)
}

// ClearSnapshots handles DELETE /projects/:id/snapshots.
func (h *ProjectHandler) ClearSnapshots(c *gin.Context) {
	h.clear(c, "Clear snapshots", h.snapshots)
}

func (h *ProjectHandler) clear(c *gin.Context, op string, clearer Clearer) {
	id, ok := h.projectID(c)
	if !ok {
		return
	}

	if _, err := h.projects.Get(c.Request.Context(), id); err != nil {
		h.serviceError(c, op, err, msgProjectNotFound)
		return
	}

	deleted, err := clearer.Clear(c.Request.Context(), id)
	if err != nil {
		h.internal(c, op, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}
