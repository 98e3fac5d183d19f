package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/domain"
)

// RedisCache implements ChatroomCache on a shared Redis instance. Entries are
// JSON-serialized listings with a fixed TTL applied on every Set.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a RedisCache with the given entry TTL.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached listing for userID, reporting a miss for absent keys.
func (c *RedisCache) Get(ctx context.Context, userID string) ([]domain.Chatroom, bool, error) {
	raw, err := c.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rooms []domain.Chatroom
	if err := json.Unmarshal(raw, &rooms); err != nil {
		// A corrupt entry is treated as a miss; the next Set overwrites it.
		return nil, false, nil
	}
	return rooms, true, nil
}

// Set stores the listing snapshot under the user's key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, userID string, rooms []domain.Chatroom) error {
	raw, err := json.Marshal(rooms)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(userID), raw, c.ttl).Err()
}

// Invalidate drops the user's entry.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.client.Del(ctx, Key(userID)).Err()
}
