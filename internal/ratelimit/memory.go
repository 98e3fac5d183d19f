package ratelimit

import (
	"context"
	"sync"
	"time"

	"chatroom-backend/internal/domain"
)

type memoryEntry struct {
	day   string
	count int
}

// MemoryGate implements Gate with process-local daily counters. Suitable for
// tests and single-node development; production deployments should use
// RedisGate so the cap holds across processes.
type MemoryGate struct {
	mu       sync.Mutex
	limit    int
	counters map[string]*memoryEntry
}

// NewMemoryGate constructs a MemoryGate with the given daily limit.
func NewMemoryGate(limit int) *MemoryGate {
	return &MemoryGate{
		limit:    limit,
		counters: make(map[string]*memoryEntry),
	}
}

// Allow consumes one unit of the user's quota for the current UTC day.
func (g *MemoryGate) Allow(_ context.Context, userID string, tier domain.Tier, now time.Time) (Result, error) {
	if tier == domain.TierPro {
		return Result{Allowed: true, Remaining: -1}, nil
	}

	day := dayKey(now)
	reset := nextMidnight(now)

	g.mu.Lock()
	entry := g.counters[userID]
	if entry == nil {
		entry = &memoryEntry{day: day}
		g.counters[userID] = entry
	}
	if entry.day != day {
		entry.day = day
		entry.count = 0
	}
	entry.count++
	if entry.count > g.limit {
		g.mu.Unlock()
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := g.limit - entry.count
	g.mu.Unlock()
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}
