package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// lockTTL bounds how long a crashed process can hold a distributed key lock.
const lockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyLocks serializes check-then-append per cache key.
// Entries are reference counted and dropped once unused.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*lockEntry)}
}

func (k *keyLocks) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (k *keyLocks) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	entry, exists := k.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(k.locks, key)
	}
}

// withKeyLock runs fn while holding the local lock for key and, when configured,
// the distributed lock shared by every process writing the same log.
// distributed reports whether the distributed lock was taken.
func (c *Controller) withKeyLock(ctx context.Context, key string, fn func(ctx context.Context, distributed bool) error) error {
	entry := c.keys.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		c.keys.release(key)
	}()

	if c.locker == nil {
		return fn(ctx, false)
	}

	unlock, err := c.locker.Lock(ctx, key, lockTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire distributed lock: %w", err)
	}
	defer func() {
		if err := unlock(ctx); err != nil {
			c.logger.Warn("Failed to release distributed lock (will expire via TTL)",
				"key", key,
				"err", err,
			)
		}
	}()

	return fn(ctx, true)
}
