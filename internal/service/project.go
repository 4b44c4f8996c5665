package service

import (
	"context"
	"fmt"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

// ProjectStore persists projects and their origins.
type ProjectStore interface {
	Create(ctx context.Context, name string, origins []string) (*domain.Project, error)
	List(ctx context.Context) ([]*domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdateAPIKey(ctx context.Context, id, apiKey string) error
	Delete(ctx context.Context, id string) error
	AddOrigin(ctx context.Context, projectID, origin string) (*domain.AllowedOrigin, error)
	RemoveOrigin(ctx context.Context, projectID, originID string) error
}

// Counter counts the records a project owns.
type Counter interface {
	Count(ctx context.Context, projectID string) (int, error)
}

// CacheInvalidator drops cached lookups for an API key.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, apiKey string)
}

// ProjectService administers projects.
type ProjectService struct {
	store     ProjectStore
	feedback  Counter
	snapshots Counter
	cache     CacheInvalidator
	logger    infralogger.Logger
}

// NewProjectService creates a project service.
func NewProjectService(
	store ProjectStore,
	feedback, snapshots Counter,
	cache CacheInvalidator,
	logger infralogger.Logger,
) *ProjectService {
	return &ProjectService{
		store:     store,
		feedback:  feedback,
		snapshots: snapshots,
		cache:     cache,
		logger:    logger,
	}
}

// Create registers a project with a fresh API key.
func (s *ProjectService) Create(ctx context.Context, req *domain.CreateProjectRequest) (*domain.Project, error) {
	project, err := s.store.Create(ctx, req.Name, req.AllowedOrigins)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("Project created",
		infralogger.String("project_id", project.ID),
		infralogger.String("name", project.Name),
		infralogger.Int("origins", len(project.AllowedOrigins)),
	)
	return project, nil
}

// List returns every project.
func (s *ProjectService) List(ctx context.Context) ([]*domain.Project, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get returns a project.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// Rename changes a project's name and returns the updated project.
func (s *ProjectService) Rename(ctx context.Context, id, name string) (*domain.Project, error) {
	if err := s.store.UpdateName(ctx, id, name); err != nil {
		return nil, fmt.Errorf("rename project: %w", err)
	}

	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, project.APIKey)
	return project, nil
}

// Delete removes a project and all of its data.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	project, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if deleteErr := s.store.Delete(ctx, id); deleteErr != nil {
		return fmt.Errorf("delete project: %w", deleteErr)
	}
	s.invalidate(ctx, project.APIKey)

	s.logger.Info("Project deleted", infralogger.String("project_id", id))
	return nil
}

// AddOrigin allows another origin for a project.
func (s *ProjectService) AddOrigin(ctx context.Context, projectID, origin string) (*domain.AllowedOrigin, error) {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}

	added, err := s.store.AddOrigin(ctx, projectID, origin)
	if err != nil {
		return nil, fmt.Errorf("add origin: %w", err)
	}
	s.invalidate(ctx, project.APIKey)
	return added, nil
}

// RemoveOrigin revokes one allowed origin.
func (s *ProjectService) RemoveOrigin(ctx context.Context, projectID, originID string) error {
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return err
	}

	if removeErr := s.store.RemoveOrigin(ctx, projectID, originID); removeErr != nil {
		return fmt.Errorf("remove origin: %w", removeErr)
	}
	s.invalidate(ctx, project.APIKey)
	return nil
}

// RotateKey issues a new API key. The old key stops working immediately.
func (s *ProjectService) RotateKey(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldKey := project.APIKey

	newKey := domain.NewAPIKey()
	if updateErr := s.store.UpdateAPIKey(ctx, id, newKey); updateErr != nil {
		return nil, fmt.Errorf("rotate api key: %w", updateErr)
	}
	s.invalidate(ctx, oldKey)

	s.logger.Info("API key rotated", infralogger.String("project_id", id))

	project.APIKey = newKey
	return project, nil
}

// Stats counts the feedback and snapshots a project holds.
func (s *ProjectService) Stats(ctx context.Context, id string) (*domain.ProjectStats, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	feedbackCount, err := s.feedback.Count(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshotCount, err := s.snapshots.Count(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.ProjectStats{
		ProjectID:     id,
		FeedbackCount: feedbackCount,
		SnapshotCount: snapshotCount,
	}, nil
}

func (s *ProjectService) invalidate(ctx context.Context, apiKey string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, apiKey)
	}
}
