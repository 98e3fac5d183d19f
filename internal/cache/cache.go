// Package cache implements the short-TTL read-through cache for chatroom
// listings. Listings are read far more often than rooms change, so the
// service layer consults the cache first and falls back to the message
// store's chatroom index on a miss, writing the result back with a fixed TTL.
//
// Write paths (room creation, message append) actively invalidate the owner's
// entry; the TTL is the backstop for anything that slips past them. Cache
// failures on the read path must degrade to a store read, so implementations
// return errors and callers log-and-continue.
package cache

import (
	"context"

	"chatroom-backend/internal/domain"
)

// ChatroomCache stores per-user snapshots of chatroom listings.
type ChatroomCache interface {
	// Get returns the cached listing for userID; the second result reports
	// whether an unexpired entry was present.
	Get(ctx context.Context, userID string) ([]domain.Chatroom, bool, error)
	// Set stores a listing snapshot under the user's key with the cache TTL.
	Set(ctx context.Context, userID string, rooms []domain.Chatroom) error
	// Invalidate drops the user's entry, if any.
	Invalidate(ctx context.Context, userID string) error
}

// Key renders the cache key for a user's chatroom listing.
func Key(userID string) string { return "chatrooms:" + userID }
