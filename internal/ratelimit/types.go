// Package ratelimit implements the per-tier daily message gate. BASIC-tier
// users are capped at a fixed number of sends per UTC calendar day; PRO-tier
// users pass through untouched. The counter lives in a shared store (Redis in
// production) so the cap holds across processes, and every increment is a
// single atomic operation, never read-then-write.
//
// The gate is fail-closed: if the counter store is unreachable the check
// returns an error and the caller must reject the request, because failing
// open would grant unlimited sends for exactly as long as the store is down.
package ratelimit

import (
	"context"
	"time"

	"chatroom-backend/internal/domain"
)

// Result describes the outcome of a gate check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Gate decides whether a user may send another message today.
type Gate interface {
	// Allow atomically consumes one unit of the user's daily quota and
	// reports whether the send is permitted. PRO-tier users are always
	// permitted with no side effect.
	Allow(ctx context.Context, userID string, tier domain.Tier, now time.Time) (Result, error)
}

// dayKey renders the UTC calendar-day component of a counter key.
func dayKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// nextMidnight returns the first instant of the following UTC day, when the
// counter implicitly resets.
func nextMidnight(now time.Time) time.Time {
	t := now.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
