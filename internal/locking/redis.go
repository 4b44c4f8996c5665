package locking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/feedback-api/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/feedback-api/infrastructure/logger"
)

const (
	redisKeyPrefix        = "feedback:lock:"
	defaultLockTTL        = 30 * time.Second
	defaultRetryDelay     = 25 * time.Millisecond
	defaultAttemptTimeout = 500 * time.Millisecond
	releaseTimeout        = time.Second
)

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis.
// Locks expire after TTL so a crashed holder cannot block a key forever.
// When Redis is unreachable, or its circuit is open, locking falls back
// to a per-process Locker.
type Redis struct {
	client         *redis.Client
	ttl            time.Duration
	retryDelay     time.Duration
	attemptTimeout time.Duration
	fallback       Locker
	breaker        *circuitbreaker.Breaker
	logger         infralogger.Logger
}

// RedisOption configures a Redis locker.
type RedisOption func(*Redis)

// WithFallback replaces the in-process fallback Locker.
func WithFallback(l Locker) RedisOption {
	return func(r *Redis) { r.fallback = l }
}

// WithLogger sets the logger used for fallback and circuit warnings.
func WithLogger(log infralogger.Logger) RedisOption {
	return func(r *Redis) { r.logger = log }
}

// WithAttemptTimeout bounds a single SET NX round trip.
func WithAttemptTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.attemptTimeout = d
		}
	}
}

// NewRedis creates a Redis locker. A zero ttl uses 30s.
func NewRedis(client *redis.Client, ttl time.Duration, opts ...RedisOption) *Redis {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	r := &Redis{
		client:         client,
		ttl:            ttl,
		retryDelay:     defaultRetryDelay,
		attemptTimeout: defaultAttemptTimeout,
		logger:         infralogger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fallback == nil {
		r.fallback = NewLocal()
	}

	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.OnStateChange = func(from, to circuitbreaker.State) {
		r.logger.Warn("Snapshot lock circuit changed",
			infralogger.String("from", from.String()),
			infralogger.String("to", to.String()),
		)
	}
	r.breaker = circuitbreaker.New(cbCfg)
	return r
}

// Lock polls SET NX until it wins the key or ctx is done. A held key is
// waited on; a Redis failure hands the key to the fallback Locker.
func (r *Redis) Lock(ctx context.Context, key string) (Unlock, error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.retryDelay)
	defer ticker.Stop()

	for {
		ok, err := r.tryAcquire(ctx, redisKey, token)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrLockTimeout
			}
			if !errors.Is(err, circuitbreaker.ErrOpen) {
				r.logger.Warn("Redis snapshot lock unavailable, using in-process lock",
					infralogger.String("key", key),
					infralogger.Error(err),
				)
			}
			return r.fallback.Lock(ctx, key)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { r.release(redisKey, token) })
	}, nil
}

// tryAcquire makes one SET NX attempt through the breaker. Attempts cut
// short by the caller's deadline do not count against Redis.
func (r *Redis) tryAcquire(ctx context.Context, redisKey, token string) (bool, error) {
	var (
		acquired bool
		setErr   error
	)
	err := r.breaker.Execute(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
		defer cancel()

		acquired, setErr = r.client.SetNX(attemptCtx, redisKey, token, r.ttl).Result()
		if setErr != nil && ctx.Err() != nil {
			return nil
		}
		return setErr
	})
	if err != nil {
		return false, err
	}
	return acquired, setErr
}

// release uses a fresh context: the caller's may already be done.
func (r *Redis) release(redisKey, token string) {
	err := r.breaker.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		return releaseScript.Run(ctx, r.client, []string{redisKey}, token).Err()
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		r.logger.Warn("Failed to release snapshot lock",
			infralogger.String("key", redisKey),
			infralogger.Error(err),
		)
	}
}
