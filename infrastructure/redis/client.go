// Package redis connects the Redis instance behind the project cache and
// the snapshot lock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/feedback-api/internal/config"
)

const (
	pingTimeout  = 5 * time.Second
	dialTimeout  = 2 * time.Second
	ioTimeout    = time.Second
	maxRetries   = 1
	minIdleConns = 2
)

// ErrEmptyAddress is returned when redis.address is not configured.
var ErrEmptyAddress = errors.New("redis address is required")

// Options maps cfg onto go-redis client options with short timeouts and
// a single retry.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
		MaxRetries:   maxRetries,
		MinIdleConns: minIdleConns,
	}
}

// Connect opens a client for cfg and verifies it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, ErrEmptyAddress
	}

	client := redis.NewClient(Options(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.Address, err)
	}

	return client, nil
}
