package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process TTL store
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*cacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type cacheItem struct {
	value      []float32
	expiration time.Time
}

// NewMemoryStore creates a store that sweeps expired items every interval.
// A zero interval disables the sweeper.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	ms := &MemoryStore{
		items: make(map[string]*cacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if interval > 0 {
		go ms.cleanupExpired(interval)
	}
	return ms
}

// Get implements Store
func (ms *MemoryStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	item, exists := ms.items[key]
	if !exists || ms.now().After(item.expiration) {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set implements Store
func (ms *MemoryStore) Set(ctx context.Context, key string, vector []float32, ttl time.Duration) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[key] = &cacheItem{
		value:      append([]float32(nil), vector...),
		expiration: ms.now().Add(ttl),
	}
	return nil
}

// Len returns the number of stored items, expired or not
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}

// Close stops the sweeper
func (ms *MemoryStore) Close() error {
	ms.once.Do(func() { close(ms.stop) })
	return nil
}

func (ms *MemoryStore) sweep() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	now := ms.now()
	for key, item := range ms.items {
		if now.After(item.expiration) {
			delete(ms.items, key)
		}
	}
}

func (ms *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.stop:
			return
		case <-ticker.C:
			ms.sweep()
		}
	}
}
