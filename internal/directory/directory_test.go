package directory_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/directory"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

type countingStore struct {
	projects map[string]*domain.Project
	calls    atomic.Int32
}

func (s *countingStore) GetByAPIKey(_ context.Context, apiKey string) (*domain.Project, error) {
	s.calls.Add(1)
	p, ok := s.projects[apiKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func newStore() *countingStore {
	return &countingStore{projects: map[string]*domain.Project{
		"pf_key": {
			ID:     "p1",
			Name:   "Demo",
			APIKey: "pf_key",
			AllowedOrigins: []domain.AllowedOrigin{
				{ID: "o1", ProjectID: "p1", Origin: "https://example.com"},
			},
		},
	}}
}

func TestLookup_WithoutCache(t *testing.T) {
	t.Parallel()

	store := newStore()
	dir := directory.New(store, infralogger.NewNop())

	project, err := dir.Lookup(context.Background(), "pf_key")
	require.NoError(t, err)
	assert.Equal(t, "p1", project.ID)

	_, err = dir.Lookup(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookup_CachesAndInvalidates(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newStore()
	dir := directory.New(store, infralogger.NewNop(), directory.WithCache(client, time.Minute))
	ctx := context.Background()

	for range 3 {
		project, err := dir.Lookup(ctx, "pf_key")
		require.NoError(t, err)
		assert.True(t, project.AllowsOrigin("https://example.com"))
		assert.Equal(t, "p1", project.AllowedOrigins[0].ProjectID)
	}
	assert.Equal(t, int32(1), store.calls.Load())

	dir.Invalidate(ctx, "pf_key")
	_, err := dir.Lookup(ctx, "pf_key")
	require.NoError(t, err)
	assert.Equal(t, int32(2), store.calls.Load())
}

func TestLookup_FallsBackWhenCacheDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	store := newStore()
	dir := directory.New(store, infralogger.NewNop(), directory.WithCache(client, time.Minute))

	// Enough failures to open the circuit; lookups keep working after it.
	for range 10 {
		project, err := dir.Lookup(context.Background(), "pf_key")
		require.NoError(t, err)
		assert.Equal(t, "Demo", project.Name)
	}
	assert.Equal(t, int32(10), store.calls.Load())
}
