package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// WildcardOrigin admits requests from any origin.
const WildcardOrigin = "*"

// APIKeyPrefix starts every project API key.
const APIKeyPrefix = "pf_"

// AllowedOrigin is one origin a project accepts submissions from.
type AllowedOrigin struct {
	ID        string    `json:"id"        db:"id"`
	ProjectID string    `json:"-"         db:"project_id"`
	Origin    string    `json:"origin"    db:"origin"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Project is a tenant: an API key plus the origins allowed to use it.
type Project struct {
	ID             string          `json:"id"             db:"id"`
	Name           string          `json:"name"           db:"name"`
	APIKey         string          `json:"apiKey"         db:"api_key"`
	CreatedAt      time.Time       `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt"      db:"updated_at"`
	AllowedOrigins []AllowedOrigin `json:"allowedOrigins" db:"-"`
}

// AllowsOrigin reports whether origin matches an allowed origin exactly or
// the project allows every origin.
func (p *Project) AllowsOrigin(origin string) bool {
	for _, o := range p.AllowedOrigins {
		if o.Origin == WildcardOrigin || o.Origin == origin {
			return true
		}
	}
	return false
}

// Origins returns the allowed origin strings.
func (p *Project) Origins() []string {
	origins := make([]string, 0, len(p.AllowedOrigins))
	for _, o := range p.AllowedOrigins {
		origins = append(origins, o.Origin)
	}
	return origins
}

// NewAPIKey generates a project API key.
func NewAPIKey() string {
	return APIKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateProjectRequest is the body of POST /projects.
type CreateProjectRequest struct {
	Name           string   `json:"name"           binding:"required,min=1,max=100"`
	AllowedOrigins []string `json:"allowedOrigins" binding:"omitempty,dive,required"`
}

// UpdateProjectRequest is the body of PATCH /projects/:id.
type UpdateProjectRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// AddOriginRequest is the body of POST /projects/:id/origins.
type AddOriginRequest struct {
	Origin string `json:"origin" binding:"required"`
}

// ProjectStats summarises the data a project holds.
type ProjectStats struct {
	ProjectID     string `json:"projectId"`
	FeedbackCount int    `json:"feedbackCount"`
	SnapshotCount int    `json:"snapshotCount"`
}
