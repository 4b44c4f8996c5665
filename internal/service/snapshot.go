// Package service holds the use cases behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/detection"
	"github.com/jonesrussell/feedback-api/internal/domain"
	"github.com/jonesrussell/feedback-api/internal/locking"
	"github.com/jonesrussell/feedback-api/internal/metrics"
)

const defaultLockTimeout = 5 * time.Second

// SnapshotStore persists the latest snapshot per key.
type SnapshotStore interface {
	Get(ctx context.Context, key domain.SnapshotKey) (*domain.Snapshot, error)
	Upsert(ctx context.Context, projectID string, sub *domain.SnapshotSubmission) error
	GetByID(ctx context.Context, projectID, id string) (*domain.Snapshot, error)
	ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Snapshot, error)
	Count(ctx context.Context, projectID string) (int, error)
	DeleteAllForProject(ctx context.Context, projectID string) (int64, error)
}

// SnapshotService stores snapshots and reports what changed since the
// previous one for the same page and session.
type SnapshotService struct {
	store       SnapshotStore
	detector    detection.Detector
	locker      locking.Locker
	lockTimeout time.Duration
	metrics     *metrics.Metrics
	logger      infralogger.Logger
}

// SnapshotOption configures a SnapshotService.
type SnapshotOption func(*SnapshotService)

// WithDetector replaces the default pattern detector.
func WithDetector(d detection.Detector) SnapshotOption {
	return func(s *SnapshotService) { s.detector = d }
}

// WithLocker serializes processing per snapshot key. The timeout bounds
// the wait for the lock.
func WithLocker(l locking.Locker, timeout time.Duration) SnapshotOption {
	return func(s *SnapshotService) {
		s.locker = l
		if timeout > 0 {
			s.lockTimeout = timeout
		}
	}
}

// WithSnapshotMetrics records processing outcomes.
func WithSnapshotMetrics(m *metrics.Metrics) SnapshotOption {
	return func(s *SnapshotService) { s.metrics = m }
}

// NewSnapshotService creates a snapshot service. Without options it uses
// the pattern detector and no locking.
func NewSnapshotService(store SnapshotStore, logger infralogger.Logger, opts ...SnapshotOption) *SnapshotService {
	s := &SnapshotService{
		store:       store,
		detector:    detection.NewPatternDetector(),
		locker:      locking.Nop{},
		lockTimeout: defaultLockTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessSnapshot stores sub as the latest snapshot of its page and
// compares it with the one it replaces. A first visit or an unchanged
// fingerprint reports no changes. A changed fingerprint always reports
// HasChanges, even when the detector finds nothing concrete.
func (s *SnapshotService) ProcessSnapshot(
	ctx context.Context, projectID string, sub *domain.SnapshotSubmission,
) (*domain.ChangeDetectionResult, error) {
	key := sub.Key(projectID)

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	unlock, err := s.locker.Lock(lockCtx, key.String())
	cancel()
	if err != nil {
		s.metrics.SnapshotProcessed(metrics.OutcomeError)
		return nil, fmt.Errorf("lock snapshot %s: %w", key, err)
	}
	defer unlock()

	prior, err := s.store.Get(ctx, key)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.metrics.SnapshotProcessed(metrics.OutcomeError)
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	if upsertErr := s.store.Upsert(ctx, projectID, sub); upsertErr != nil {
		s.metrics.SnapshotProcessed(metrics.OutcomeError)
		return nil, fmt.Errorf("upsert snapshot: %w", upsertErr)
	}

	if prior == nil {
		s.metrics.SnapshotProcessed(metrics.OutcomeFirst)
		return domain.NoChanges(), nil
	}

	if prior.Fingerprint == sub.Fingerprint {
		s.metrics.SnapshotProcessed(metrics.OutcomeUnchanged)
		return domain.NoChanges(), nil
	}

	start := time.Now()
	changes := s.detector.DetectChanges(prior.HTML, sub.HTML)
	s.metrics.ObserveDetection(time.Since(start))

	for _, change := range changes {
		s.metrics.ElementChanged(change.Selector, string(change.ChangeType))
	}
	s.metrics.SnapshotProcessed(metrics.OutcomeChanged)

	s.logger.Debug("Snapshot changed",
		infralogger.String("project_id", projectID),
		infralogger.String("session_id", sub.SessionID),
		infralogger.String("url", sub.URL),
		infralogger.Int("changed_elements", len(changes)),
	)

	if changes == nil {
		changes = []domain.ChangedElement{}
	}

	return &domain.ChangeDetectionResult{
		HasChanges:      true,
		ChangedElements: changes,
		PromptConfig:    detection.BuildPromptConfig(changes),
	}, nil
}

// GetByID returns a snapshot owned by projectID.
func (s *SnapshotService) GetByID(ctx context.Context, projectID, id string) (*domain.Snapshot, error) {
	snap, err := s.store.GetByID(ctx, projectID, id)
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap, nil
}

// ListBySession returns a session's snapshots, newest first.
func (s *SnapshotService) ListBySession(ctx context.Context, projectID, sessionID string) ([]*domain.Snapshot, error) {
	snaps, err := s.store.ListBySession(ctx, projectID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, nil
}

// Count returns the number of snapshots a project holds.
func (s *SnapshotService) Count(ctx context.Context, projectID string) (int, error) {
	n, err := s.store.Count(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// Clear deletes every snapshot of a project.
func (s *SnapshotService) Clear(ctx context.Context, projectID string) (int64, error) {
	deleted, err := s.store.DeleteAllForProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("clear snapshots: %w", err)
	}

	s.logger.Info("Snapshots cleared",
		infralogger.String("project_id", projectID),
		infralogger.Int64("deleted", deleted),
	)
	return deleted, nil
}
