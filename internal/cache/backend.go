package cache

import (
	"context"
	"sync"
	"time"
)

// Backend stores encoded values under string keys with an expiry.
// Implementations never return expired values from Get.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// CleanExpired removes expired entries and returns how many were removed.
	CleanExpired(ctx context.Context) (int, error)
}

// MemoryBackend keeps entries in a map. Expired entries are dropped lazily on
// read and in bulk by CleanExpired.
type MemoryBackend struct {
	mu    sync.Mutex
	now   func() time.Time
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return NewMemoryBackendWithClock(time.Now)
}

func NewMemoryBackendWithClock(now func() time.Time) *MemoryBackend {
	return &MemoryBackend{now: now, items: make(map[string]memoryItem)}
}

func (b *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	item, ok := b.items[key]
	if !ok {
		return nil, false, nil
	}
	if !b.now().Before(item.expiresAt) {
		delete(b.items, key)
		return nil, false, nil
	}
	return item.value, true, nil
}

func (b *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[key] = memoryItem{value: value, expiresAt: b.now().Add(ttl)}
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.items, key)
	return nil
}

func (b *MemoryBackend) CleanExpired(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	removed := 0
	for key, item := range b.items {
		if !now.Before(item.expiresAt) {
			delete(b.items, key)
			removed++
		}
	}
	return removed, nil
}

// Size returns the number of stored entries, expired ones included.
func (b *MemoryBackend) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
