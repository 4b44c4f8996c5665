package service

import (
	"context"
	"fmt"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/metrics"
)

// FeedbackStore persists feedback submissions.
type FeedbackStore interface {
	Insert(ctx context.Context, projectID string, sub *domain.FeedbackSubmission) (*domain.Feedback, error)
	GetByID(ctx context.Context, projectID, id string) (*domain.Feedback, error)
	ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Feedback, error)
	Count(ctx context.Context, projectID string) (int, error)
	DeleteAllForProject(ctx context.Context, projectID string) (int64, error)
}

// FeedbackService stores and reads feedback.
type FeedbackService struct {
	store   FeedbackStore
	metrics *metrics.Metrics
	logger  infralogger.Logger
}

// NewFeedbackService creates a feedback service. m may be nil.
func NewFeedbackService(store FeedbackStore, m *metrics.Metrics, logger infralogger.Logger) *FeedbackService {
	return &FeedbackService{store: store, metrics: m, logger: logger}
}

// Create stores sub under projectID.
func (s *FeedbackService) Create(
	ctx context.Context, projectID string, sub *domain.FeedbackSubmission,
) (*domain.SubmissionResult, error) {
	stored, err := s.store.Insert(ctx, projectID, sub)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	var trigger string
	if sub.Context.Trigger != nil {
		trigger = string(sub.Context.Trigger.Type)
	}
	s.metrics.FeedbackStored(trigger, string(sub.Response.Type))

	s.logger.Debug("Feedback stored",
		infralogger.String("project_id", projectID),
		infralogger.String("feedback_id", stored.ID),
		infralogger.String("trigger_type", trigger),
	)

	return &domain.SubmissionResult{Success: true, ID: stored.ID}, nil
}

// GetByID returns feedback owned by projectID.
func (s *FeedbackService) GetByID(ctx context.Context, projectID, id string) (*domain.Feedback, error) {
	fb, err := s.store.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return fb, nil
}

// ListBySession returns a session's feedback, newest first.
func (s *FeedbackService) ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Feedback, error) {
	items, err := s.store.ListBySession(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}

// Count returns the number of feedback records a project holds.
func (s *FeedbackService) Count(ctx context.Context, projectID string) (int, error) {
	n, err := s.store.Count(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("count feedback: %w", err)
	}
	return n, nil
}

// Clear deletes every feedback record of a project.
func (s *FeedbackService) Clear(ctx context.Context, projectID string) (int64, error) {
	deleted, err := s.store.DeleteAllForProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("clear feedback: %w", err)
	}

	s.logger.Info("Feedback cleared",
		infralogger.String("project_id", projectID),
		infralogger.Int64("deleted", deleted),
	)
	return deleted, nil
}
