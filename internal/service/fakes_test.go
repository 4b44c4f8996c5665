package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/feedback-api/internal/domain"
)

var errStoreDown = errors.New("store down")

type memorySnapshotStore struct {
	mu      sync.Mutex
	byKey   map[string]*domain.Snapshot
	getErr  error
	upserts int
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{byKey: make(map[string]*domain.Snapshot)}
}

func (m *memorySnapshotStore) Get(_ context.Context, key domain.SnapshotKey) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	snap, ok := m.byKey[key.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *snap
	return &copied, nil
}

func (m *memorySnapshotStore) Upsert(_ context.Context, projectID string, sub *domain.SnapshotSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	key := sub.Key(projectID).String()
	id := uuid.NewString()
	if existing, ok := m.byKey[key]; ok {
		id = existing.ID
	}
	m.byKey[key] = &domain.Snapshot{
		ID:          id,
		ProjectID:   projectID,
		SessionID:   sub.SessionID,
		URL:         sub.URL,
		HTML:        sub.HTML,
		Fingerprint: sub.Fingerprint,
		Timestamp:   sub.Timestamp,
		ReceivedAt:  time.Now().UTC(),
	}
	return nil
}

func (m *memorySnapshotStore) GetByID(_ context.Context, projectID, id string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, snap := range m.byKey {
		if snap.ID == id && (projectID == "" || snap.ProjectID == projectID) {
			return snap, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memorySnapshotStore) ListBySession(_ context.Context, projectID, sessionID string) ([]*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Snapshot{}
	for _, snap := range m.byKey {
		if snap.ProjectID == projectID && snap.SessionID == sessionID {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (m *memorySnapshotStore) Count(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, snap := range m.byKey {
		if snap.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *memorySnapshotStore) DeleteAllForProject(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key, snap := range m.byKey {
		if snap.ProjectID == projectID {
			delete(m.byKey, key)
			n++
		}
	}
	return n, nil
}

type memoryFeedbackStore struct {
	mu    sync.Mutex
	items map[string]*domain.Feedback
}

func newMemoryFeedbackStore() *memoryFeedbackStore {
	return &memoryFeedbackStore{items: make(map[string]*domain.Feedback)}
}

func (m *memoryFeedbackStore) Insert(
	_ context.Context, projectID string, sub *domain.FeedbackSubmission,
) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fb := &domain.Feedback{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Context:    sub.Context,
		Response:   sub.Response,
		ReceivedAt: time.Now().UTC(),
	}
	m.items[fb.ID] = fb
	return fb, nil
}

func (m *memoryFeedbackStore) GetByID(_ context.Context, projectID, id string) (*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fb, ok := m.items[id]
	if !ok || (projectID != "" && fb.ProjectID != projectID) {
		return nil, domain.ErrNotFound
	}
	return fb, nil
}

func (m *memoryFeedbackStore) ListBySession(_ context.Context, projectID, sessionID string) ([]*domain.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Feedback{}
	for _, fb := range m.items {
		if fb.ProjectID == projectID && fb.Context.SessionID == sessionID {
			out = append(out, fb)
		}
	}
	return out, nil
}

func (m *memoryFeedbackStore) Count(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, fb := range m.items {
		if fb.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (m *memoryFeedbackStore) DeleteAllForProject(_ context.Context, projectID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, fb := range m.items {
		if fb.ProjectID == projectID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

type memoryProjectStore struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
}

func newMemoryProjectStore() *memoryProjectStore {
	return &memoryProjectStore{projects: make(map[string]*domain.Project)}
}

func (m *memoryProjectStore) Create(_ context.Context, name string, origins []string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := &domain.Project{ID: uuid.NewString(), Name: name, APIKey: domain.NewAPIKey()}
	for _, o := range origins {
		p.AllowedOrigins = append(p.AllowedOrigins, domain.AllowedOrigin{ID: uuid.NewString(), ProjectID: p.ID, Origin: o})
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memoryProjectStore) List(_ context.Context) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.Project, 0, len(m.projects))
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProjectStore) GetByID(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	copied.AllowedOrigins = append([]domain.AllowedOrigin(nil), p.AllowedOrigins...)
	return &copied, nil
}

func (m *memoryProjectStore) UpdateName(_ context.Context, id, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Name = name
	return nil
}

func (m *memoryProjectStore) UpdateAPIKey(_ context.Context, id, apiKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.APIKey = apiKey
	return nil
}

func (m *memoryProjectStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memoryProjectStore) AddOrigin(_ context.Context, projectID, origin string) (*domain.AllowedOrigin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for _, o := range p.AllowedOrigins {
		if o.Origin == origin {
			return nil, domain.ErrAlreadyExists
		}
	}
	ao := domain.AllowedOrigin{ID: uuid.NewString(), ProjectID: projectID, Origin: origin}
	p.AllowedOrigins = append(p.AllowedOrigins, ao)
	return &ao, nil
}

func (m *memoryProjectStore) RemoveOrigin(_ context.Context, projectID, originID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.projects[projectID]
	if !ok {
		return domain.ErrNotFound
	}
	for i, o := range p.AllowedOrigins {
		if o.ID == originID {
			p.AllowedOrigins = append(p.AllowedOrigins[:i], p.AllowedOrigins[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type recordingInvalidator struct {
	mu   sync.Mutex
	keys []string
}

func (r *recordingInvalidator) Invalidate(_ context.Context, apiKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, apiKey)
}
