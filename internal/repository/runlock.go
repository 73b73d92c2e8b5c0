package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	domrepo "PricePulse/internal/domain/repository"
	"PricePulse/pkg/cache"

	"github.com/google/uuid"
)

// RunLockKey is the cache key guarding pipeline runs.
var RunLockKey = cache.Key("lock", "run")

var _ domrepo.RunLock = (*CacheRunLock)(nil)

// CacheRunLock is a run lock held in the shared cache under a per-process
// owner token.
type CacheRunLock struct {
	cache cache.Service
	key   string
	owner string

	mu   sync.Mutex
	held bool
}

func NewCacheRunLock(c cache.Service) *CacheRunLock {
	return &CacheRunLock{cache: c, key: RunLockKey, owner: lockOwner()}
}

func lockOwner() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString())
}

// Owner returns the token written into the lock.
func (l *CacheRunLock) Owner() string { return l.owner }

func (l *CacheRunLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := l.cache.TryLock(ctx, l.key, l.owner, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire run lock: %w", err)
	}
	l.mu.Lock()
	l.held = ok
	l.mu.Unlock()
	return ok, nil
}

// Release drops the lock if this process still owns it.
func (l *CacheRunLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		return nil
	}
	l.held = false
	if err := l.cache.Unlock(ctx, l.key, l.owner); err != nil {
		if errors.Is(err, cache.ErrNotOwner) {
			return nil
		}
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}
