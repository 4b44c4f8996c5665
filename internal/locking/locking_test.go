package locking_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/feedback-api/internal/locking"
)

func assertExclusive(t *testing.T, locker locking.Locker) {
	t.Helper()

	const workers = 8
	var (
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			unlock, err := locker.Lock(ctx, "p|s|https://example.com/")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				seen := maxSeen.Load()
				if n <= seen || maxSeen.CompareAndSwap(seen, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestLocal_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := locking.NewLocal()
	assertExclusive(t, locker)
	assert.Zero(t, locker.Active())
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := locking.NewLocal()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocal_TimesOut(t *testing.T) {
	t.Parallel()

	locker := locking.NewLocal()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, locking.ErrLockTimeout)
}

func TestLocal_UnlockTwice(t *testing.T) {
	t.Parallel()

	locker := locking.NewLocal()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	again, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	again()
	assert.Zero(t, locker.Active())
}

func newRedisLocker(t *testing.T) (*locking.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return locking.NewRedis(client, time.Second), mr
}

func TestRedis_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker, _ := newRedisLocker(t)
	assertExclusive(t, locker)
}

func TestRedis_ReleaseDeletesKey(t *testing.T) {
	t.Parallel()

	locker, mr := newRedisLocker(t)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, mr.Exists("feedback:lock:k"))

	unlock()
	assert.False(t, mr.Exists("feedback:lock:k"))
}

func TestRedis_TimesOutWhileHeld(t *testing.T) {
	t.Parallel()

	locker, _ := newRedisLocker(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	_, err = locker.Lock(ctx, "k")
	require.ErrorIs(t, err, locking.ErrLockTimeout)
}

func TestRedis_ReleaseKeepsForeignLock(t *testing.T) {
	t.Parallel()

	locker, mr := newRedisLocker(t)
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another holder.
	require.NoError(t, mr.Set("feedback:lock:k", "someone-else"))
	unlock()

	got, err := mr.Get("feedback:lock:k")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestRedis_FallsBackWhenRedisDown(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	fallback := locking.NewLocal()
	locker := locking.NewRedis(client, time.Second,
		locking.WithFallback(fallback),
		locking.WithAttemptTimeout(100*time.Millisecond),
	)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.Active())

	// The fallback still serializes the key within this process.
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer waitCancel()
	_, err = locker.Lock(waitCtx, "k")
	require.ErrorIs(t, err, locking.ErrLockTimeout)

	unlock()
	assert.Zero(t, fallback.Active())
}

func TestRedis_OpenCircuitSkipsRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	locker := locking.NewRedis(client, time.Second, locking.WithAttemptTimeout(100*time.Millisecond))
	mr.Close()

	// Enough failures to open the circuit, then calls return at once.
	for range 6 {
		unlock, err := locker.Lock(context.Background(), "k")
		require.NoError(t, err)
		unlock()
	}

	start := time.Now()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLocal_TakesFreeKeyWithDoneContext(t *testing.T) {
	t.Parallel()

	locker := locking.NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)
	unlock()
}

func TestNop(t *testing.T) {
	t.Parallel()

	unlock, err := locking.Nop{}.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}
