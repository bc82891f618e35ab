// Package cache stores product details between lookups. Values are JSON
// encoded so the in-memory and Redis implementations behave the same.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a JSON value store with per-entry expiry.
type Cache interface {
	// Get decodes the value at key into dest. found is false on a miss.
	Get(ctx context.Context, key string, dest any) (found bool, err error)

	// Set stores value at key for ttl (0 means the cache default).
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error
}

// Stats tracks cache statistics.
type Stats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Sets   uint64 `json:"sets"`
	Errors uint64 `json:"errors"`
}

type counters struct {
	hits, misses, sets, errors atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
		Errors: c.errors.Load(),
	}
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Cache. Expired entries are dropped lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stats   counters
}

// NewMemory creates a Memory cache with a default ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(e.expiresAt) {
		if ok {
			m.mu.Lock()
			if cur, still := m.entries[key]; still && !m.now().Before(cur.expiresAt) {
				delete(m.entries, key)
			}
			m.mu.Unlock()
		}
		m.stats.misses.Add(1)
		return false, nil
	}

	if err := json.Unmarshal(e.data, dest); err != nil {
		m.stats.errors.Add(1)
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	m.stats.hits.Add(1)
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.ttl
	}
	data, err := json.Marshal(value)
	if err != nil {
		m.stats.errors.Add(1)
		return fmt.Errorf("cache marshal error: %w", err)
	}

	m.mu.Lock()
	m.entries[key] = entry{data: data, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()

	m.stats.sets.Add(1)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Stats returns a snapshot of the counters.
func (m *Memory) Stats() Stats {
	return m.stats.snapshot()
}
