package cache

import (
	"context"
	"sync"
	"time"
)

type item[V any] struct {
	value     V
	expiresAt time.Time // zero: never
}

// Memory is an in-process cache. Expired entries are dropped on access.
// When MaxEntries is reached the entry closest to expiry is evicted.
type Memory[V any] struct {
	items      map[string]item[V]
	now        func() time.Time
	defaultTTL time.Duration
	maxEntries int
	mu         sync.Mutex
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	now        func() time.Time
	defaultTTL time.Duration
	maxEntries int
}

// WithDefaultTTL sets the ttl used when Set is called with zero. Default: 5m.
func WithDefaultTTL(d time.Duration) MemoryOption {
	return func(c *memoryConfig) { c.defaultTTL = d }
}

// WithMaxEntries bounds the number of entries. Zero means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(c *memoryConfig) { c.maxEntries = n }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *memoryConfig) { c.now = now }
}

// NewMemory creates an in-process cache.
func NewMemory[V any](opts ...MemoryOption) *Memory[V] {
	cfg := memoryConfig{now: time.Now, defaultTTL: 5 * time.Minute}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory[V]{
		items:      make(map[string]item[V]),
		now:        cfg.now,
		defaultTTL: cfg.defaultTTL,
		maxEntries: cfg.maxEntries,
	}
}

// Get implements Cache.
func (m *Memory[V]) Get(_ context.Context, key string) (V, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok || m.expired(it) {
		delete(m.items, key)
		var zero V
		return zero, ErrNotFound
	}
	return it.value, nil
}

// Set implements Cache.
func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key]; !ok && m.maxEntries > 0 && len(m.items) >= m.maxEntries {
		m.evict()
	}
	m.items[key] = it
	return nil
}

// Delete implements Cache.
func (m *Memory[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet dropped.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory[V]) expired(it item[V]) bool {
	return !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt)
}

// evict drops expired entries. If none were expired it drops the entry
// expiring soonest, or an arbitrary one when nothing expires.
func (m *Memory[V]) evict() {
	for k, it := range m.items {
		if m.expired(it) {
			delete(m.items, k)
		}
	}
	if len(m.items) < m.maxEntries {
		return
	}

	var (
		victim  string
		soonest time.Time
	)
	for k, it := range m.items {
		if victim == "" || (!it.expiresAt.IsZero() && (soonest.IsZero() || it.expiresAt.Before(soonest))) {
			victim, soonest = k, it.expiresAt
		}
	}
	delete(m.items, victim)
}

var _ Cache[any] = (*Memory[any])(nil)
