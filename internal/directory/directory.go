// Package directory resolves API keys to projects, optionally through a
// Redis read-through cache. A circuit breaker skips the cache while Redis
// keeps failing.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/feedback-api/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
	"github.com/jonesrussell/feedback-api/internal/domain"
)

const cacheKeyPrefix = "feedback:project:"

// ProjectStore is the persistent source of projects.
type ProjectStore interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*domain.Project, error)
}

// Directory looks up projects by API key.
type Directory struct {
	store   ProjectStore
	cache   *redis.Client
	ttl     time.Duration
	breaker *circuitbreaker.Breaker
	logger  infralogger.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithCache caches lookups in Redis for ttl.
func WithCache(client *redis.Client, ttl time.Duration) Option {
	return func(d *Directory) {
		d.cache = client
		d.ttl = ttl
	}
}

// New creates a Directory over store.
func New(store ProjectStore, log infralogger.Logger, opts ...Option) *Directory {
	d := &Directory{store: store, logger: log}
	for _, opt := range opts {
		opt(d)
	}

	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.OnStateChange = func(from, to circuitbreaker.State) {
		d.logger.Warn("Project cache circuit changed",
			infralogger.String("from", from.String()),
			infralogger.String("to", to.String()),
		)
	}
	d.breaker = circuitbreaker.New(cbCfg)
	return d
}

// cacheCall runs fn against Redis through the breaker. It reports false
// when the call failed or was skipped.
func (d *Directory) cacheCall(op string, fn func() error) bool {
	err := d.breaker.Execute(fn)
	switch {
	case err == nil:
		return true
	case errors.Is(err, circuitbreaker.ErrOpen):
		return false
	default:
		d.logger.Warn("Project cache "+op+" failed", infralogger.Error(err))
		return false
	}
}

// Lookup returns the project owning apiKey, or domain.ErrNotFound.
// Cache failures fall through to the store.
func (d *Directory) Lookup(ctx context.Context, apiKey string) (*domain.Project, error) {
	if d.cache != nil {
		if project, ok := d.fromCache(ctx, apiKey); ok {
			return project, nil
		}
	}

	project, err := d.store.GetByAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		d.toCache(ctx, project)
	}
	return project, nil
}

// Invalidate drops the cached entry for apiKey.
func (d *Directory) Invalidate(ctx context.Context, apiKey string) {
	if d.cache == nil || apiKey == "" {
		return
	}
	d.cacheCall("invalidate", func() error {
		return d.cache.Del(ctx, cacheKeyPrefix+apiKey).Err()
	})
}

func (d *Directory) fromCache(ctx context.Context, apiKey string) (*domain.Project, bool) {
	var raw []byte
	ok := d.cacheCall("read", func() error {
		var err error
		raw, err = d.cache.Get(ctx, cacheKeyPrefix+apiKey).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	})
	if !ok || raw == nil {
		return nil, false
	}

	var project domain.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		d.logger.Warn("Discarding unreadable cached project", infralogger.Error(err))
		return nil, false
	}
	for i := range project.AllowedOrigins {
		project.AllowedOrigins[i].ProjectID = project.ID
	}
	return &project, true
}

func (d *Directory) toCache(ctx context.Context, project *domain.Project) {
	raw, err := json.Marshal(project)
	if err != nil {
		d.logger.Warn("Failed to encode project for cache", infralogger.Error(fmt.Errorf("marshal: %w", err)))
		return
	}
	d.cacheCall("write", func() error {
		return d.cache.Set(ctx, cacheKeyPrefix+project.APIKey, raw, d.ttl).Err()
	})
}
