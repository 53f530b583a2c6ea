package cache

import (
	"context"
	"sync"
	"time"

	"github.com/leeforge/imageflow/meta"
)

// Memory is an in-process MetadataCache with TTL expiry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	visual    meta.Visual
	expiresAt time.Time
}

// NewMemory creates a Memory cache. A non-positive ttl disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *Memory) Get(_ context.Context, digest string) (meta.Visual, bool) {
	m.mu.RLock()
	entry, ok := m.entries[digest]
	m.mu.RUnlock()

	if !ok {
		return meta.Visual{}, false
	}
	if m.ttl > 0 && time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, digest)
		m.mu.Unlock()
		return meta.Visual{}, false
	}
	return entry.visual, true
}

func (m *Memory) Set(_ context.Context, digest string, visual meta.Visual) {
	m.mu.Lock()
	m.entries[digest] = memoryEntry{
		visual:    visual,
		expiresAt: time.Now().Add(m.ttl),
	}
	m.mu.Unlock()
}
