package ratelimit

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chatroom-backend/internal/domain"
)

// counterTTLSeconds keeps a daily counter alive for 24 hours after its first
// increment; the day-scoped key makes the reset implicit regardless.
const counterTTLSeconds = 24 * 60 * 60

// The INCR and the conditional EXPIRE must be one atomic unit, otherwise a
// crash between them leaves a counter with no expiry.
var redisIncrScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisGate implements Gate on a shared Redis instance with a fixed daily
// window per (user, UTC day).
type RedisGate struct {
	client *redis.Client
	prefix string
	limit  int
}

// NewRedisGate constructs a RedisGate with the given daily limit.
func NewRedisGate(client *redis.Client, prefix string, limit int) *RedisGate {
	return &RedisGate{
		client: client,
		prefix: strings.TrimSpace(prefix),
		limit:  limit,
	}
}

// Allow atomically increments the user's counter for the current UTC day and
// compares the post-increment count against the daily limit. Store errors are
// returned as-is (fail-closed).
func (g *RedisGate) Allow(ctx context.Context, userID string, tier domain.Tier, now time.Time) (Result, error) {
	if tier == domain.TierPro {
		return Result{Allowed: true, Remaining: -1}, nil
	}
	if g == nil || g.client == nil {
		return Result{}, errors.New("rate gate: no redis client")
	}

	reset := nextMidnight(now)
	key := g.buildKey(userID, now)
	res, errEval := redisIncrScript.Run(ctx, g.client, []string{key}, counterTTLSeconds).Result()
	if errEval != nil {
		return Result{}, errEval
	}
	count, ok := res.(int64)
	if !ok {
		switch v := res.(type) {
		case int:
			count = int64(v)
		case uint64:
			count = int64(v)
		default:
			return Result{}, errors.New("rate gate: unexpected redis response type")
		}
	}
	if count > int64(g.limit) {
		return Result{Allowed: false, Remaining: 0, Reset: reset}, nil
	}
	remaining := g.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}

func (g *RedisGate) buildKey(userID string, now time.Time) string {
	day := dayKey(now)
	if g.prefix == "" {
		return "ratelimit:" + userID + ":" + day
	}
	return g.prefix + ":" + userID + ":" + day
}
