// Package locking serializes work per key, either within one process or
// across replicas sharing a Redis instance.
package locking

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a lock could not be taken before the
// context ended.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker grants exclusive access to a key.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process Locker backed by one mutex per active key.
type Local struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*keyLock)}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	// A free key is taken even if ctx is already done.
	select {
	case kl.ch <- struct{}{}:
	default:
		select {
		case kl.ch <- struct{}{}:
		case <-ctx.Done():
			l.release(key, kl)
			return nil, ErrLockTimeout
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			l.release(key, kl)
		})
	}, nil
}

func (l *Local) release(key string, kl *keyLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// Active returns the number of keys currently held or awaited.
func (l *Local) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Nop never blocks.
type Nop struct{}

// Lock returns immediately.
func (Nop) Lock(context.Context, string) (Unlock, error) {
	return func() {}, nil
}
