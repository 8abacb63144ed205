package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a single-process lock table keyed by order
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryLocker creates an empty lock table
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// TryAcquire takes key for ttl unless an unexpired entry exists
func (l *MemoryLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, held := l.entries[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	l.entries[key] = now.Add(ttl)

	// expired entries of other keys are swept on the way
	for k, expiresAt := range l.entries {
		if k != key && !now.Before(expiresAt) {
			delete(l.entries, k)
		}
	}
	return true, nil
}

// Release drops key
func (l *MemoryLocker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}
