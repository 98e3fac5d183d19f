package cache

import (
	"context"
	"sync"
	"time"

	"chatroom-backend/internal/domain"
)

type memoryItem struct {
	rooms     []domain.Chatroom
	expiresAt time.Time
}

// MemoryCache implements ChatroomCache with a process-local map. Used by tests
// and single-node development setups.
type MemoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[string]memoryItem

	// Now is a clock seam for expiry tests; defaults to time.Now.
	Now func() time.Time
}

// NewMemoryCache constructs a MemoryCache with the given entry TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:   ttl,
		items: make(map[string]memoryItem),
		Now:   time.Now,
	}
}

// Get returns the cached listing for userID, dropping expired entries lazily.
func (c *MemoryCache) Get(_ context.Context, userID string) ([]domain.Chatroom, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[Key(userID)]
	if !ok {
		return nil, false, nil
	}
	if c.Now().After(item.expiresAt) {
		delete(c.items, Key(userID))
		return nil, false, nil
	}
	out := make([]domain.Chatroom, len(item.rooms))
	copy(out, item.rooms)
	return out, true, nil
}

// Set stores the listing snapshot with the cache TTL.
func (c *MemoryCache) Set(_ context.Context, userID string, rooms []domain.Chatroom) error {
	snapshot := make([]domain.Chatroom, len(rooms))
	copy(snapshot, rooms)
	c.mu.Lock()
	c.items[Key(userID)] = memoryItem{rooms: snapshot, expiresAt: c.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Invalidate drops the user's entry.
func (c *MemoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	delete(c.items, Key(userID))
	c.mu.Unlock()
	return nil
}
