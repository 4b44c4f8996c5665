package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

const projectColumns = `id, name, api_key, created_at, updated_at`

// ProjectRepository stores projects and their allowed origins.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a project with a fresh API key and its origins.
// Duplicate origins are stored once.
func (r *ProjectRepository) Create(ctx context.Context, name string, origins []string) (*domain.Project, error) {
	ts := now()
	project := &domain.Project{
		ID:             uuid.NewString(),
		Name:           name,
		APIKey:         domain.NewAPIKey(),
		CreatedAt:      ts,
		UpdatedAt:      ts,
		AllowedOrigins: []domain.AllowedOrigin{},
	}

	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		insertProject := tx.Rebind(`
			INSERT INTO projects (` + projectColumns + `)
			VALUES (?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, insertProject,
			project.ID, project.Name, project.APIKey, project.CreatedAt, project.UpdatedAt,
		); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrAlreadyExists
			}
			return fmt.Errorf("failed to create project: %w", err)
		}

		seen := make(map[string]struct{}, len(origins))
		for _, origin := range origins {
			if _, dup := seen[origin]; dup {
				continue
			}
			seen[origin] = struct{}{}

			ao, err := insertOrigin(ctx, tx, project.ID, origin)
			if err != nil {
				return err
			}
			project.AllowedOrigins = append(project.AllowedOrigins, *ao)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return project, nil
}

func insertOrigin(ctx context.Context, ext sqlx.ExtContext, projectID, origin string) (*domain.AllowedOrigin, error) {
	ao := &domain.AllowedOrigin{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Origin:    origin,
		CreatedAt: now(),
	}

	query := ext.Rebind(`
		INSERT INTO allowed_origins (id, project_id, origin, created_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := ext.ExecContext(ctx, query, ao.ID, ao.ProjectID, ao.Origin, ao.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to add origin: %w", err)
	}

	return ao, nil
}

// GetByID returns a project with its origins.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	return r.getOne(ctx, "id", id)
}

// GetByAPIKey returns the project owning apiKey.
func (r *ProjectRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Project, error) {
	return r.getOne(ctx, "api_key", apiKey)
}

func (r *ProjectRepository) getOne(ctx context.Context, column, value string) (*domain.Project, error) {
	query := r.db.Rebind(`SELECT ` + projectColumns + ` FROM projects WHERE ` + column + ` = ?`)

	project := &domain.Project{}
	if err := r.db.GetContext(ctx, project, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	origins, err := r.origins(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	project.AllowedOrigins = origins

	return project, nil
}

func (r *ProjectRepository) origins(ctx context.Context, projectID string) ([]domain.AllowedOrigin, error) {
	query := r.db.Rebind(`
		SELECT id, project_id, origin, created_at
		FROM allowed_origins
		WHERE project_id = ?
		ORDER BY created_at, origin`)

	origins := []domain.AllowedOrigin{}
	if err := r.db.SelectContext(ctx, &origins, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list origins: %w", err)
	}
	return origins, nil
}

// List returns every project with its origins, newest first.
func (r *ProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	var projects []*domain.Project
	if err := r.db.SelectContext(ctx, &projects,
		`SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`,
	); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	var origins []domain.AllowedOrigin
	if err := r.db.SelectContext(ctx, &origins,
		`SELECT id, project_id, origin, created_at FROM allowed_origins ORDER BY created_at, origin`,
	); err != nil {
		return nil, fmt.Errorf("failed to list origins: %w", err)
	}

	byProject := make(map[string][]domain.AllowedOrigin, len(projects))
	for _, o := range origins {
		byProject[o.ProjectID] = append(byProject[o.ProjectID], o)
	}
	for _, p := range projects {
		p.AllowedOrigins = byProject[p.ID]
		if p.AllowedOrigins == nil {
			p.AllowedOrigins = []domain.AllowedOrigin{}
		}
	}

	if projects == nil {
		projects = []*domain.Project{}
	}
	return projects, nil
}

// UpdateName renames a project.
func (r *ProjectRepository) UpdateName(ctx context.Context, id, name string) error {
	query := r.db.Rebind(`UPDATE projects SET name = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, "update project", query, name, now(), id)
}

// UpdateAPIKey replaces a project's API key.
func (r *ProjectRepository) UpdateAPIKey(ctx context.Context, id, apiKey string) error {
	query := r.db.Rebind(`UPDATE projects SET api_key = ?, updated_at = ? WHERE id = ?`)
	return r.execOne(ctx, "rotate api key", query, apiKey, now(), id)
}

// AddOrigin allows origin for a project.
func (r *ProjectRepository) AddOrigin(ctx context.Context, projectID, origin string) (*domain.AllowedOrigin, error) {
	return insertOrigin(ctx, r.db, projectID, origin)
}

// RemoveOrigin deletes one allowed origin of a project.
func (r *ProjectRepository) RemoveOrigin(ctx context.Context, projectID, originID string) error {
	query := r.db.Rebind(`DELETE FROM allowed_origins WHERE id = ? AND project_id = ?`)
	return r.execOne(ctx, "remove origin", query, originID, projectID)
}

// Delete removes a project and everything it owns.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, table := range []string{"feedback", "snapshots", "allowed_origins"} {
			query := tx.Rebind(`DELETE FROM ` + table + ` WHERE project_id = ?`)
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("failed to delete %s: %w", table, err)
			}
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM projects WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return expectOneRow(result)
	})
}

func (r *ProjectRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
