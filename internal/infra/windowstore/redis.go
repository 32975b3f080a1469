// Package windowstore provides shared WindowStore backends for the app rate
// limiter.
package windowstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"teamhub/pkg/ratelimit"
)

// DefaultKeyPrefix namespaces window keys in Redis.
const DefaultKeyPrefix = "teamhub:ratelimit:"

// incrementLua resets the window when it is missing or ended at ARGV[1], then
// increments. Times are unix milliseconds supplied by the caller, so every
// instance agrees on the boundary regardless of Redis' clock.
const incrementLua = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local reset = tonumber(redis.call("HGET", KEYS[1], "reset_at"))
local count
if reset == nil or now >= reset then
	reset = now + window
	count = 1
	redis.call("HSET", KEYS[1], "count", 1, "reset_at", reset)
	redis.call("PEXPIRE", KEYS[1], window)
else
	count = redis.call("HINCRBY", KEYS[1], "count", 1)
end
return {count, reset}
`

// sweepLua deletes the key when its window ended at ARGV[1].
const sweepLua = `
local reset = tonumber(redis.call("HGET", KEYS[1], "reset_at"))
if reset ~= nil and tonumber(ARGV[1]) >= reset then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisStore keeps fixed windows in Redis hashes so several API instances
// share one count per app. Increment runs as a single Lua script.
type RedisStore struct {
	client          redis.UniversalClient
	prefix          string
	incrementScript *redis.Script
	sweepScript     *redis.Script
}

// NewRedisStore creates a RedisStore. An empty prefix uses DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{
		client:          client,
		prefix:          prefix,
		incrementScript: redis.NewScript(incrementLua),
		sweepScript:     redis.NewScript(sweepLua),
	}
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Increment implements ratelimit.WindowStore.
func (s *RedisStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (ratelimit.WindowCounter, error) {
	res, err := s.incrementScript.Run(ctx, s.client, []string{s.prefix + key},
		now.UnixMilli(), window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return ratelimit.WindowCounter{}, fmt.Errorf("redis increment: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.WindowCounter{}, fmt.Errorf("redis increment: unexpected reply length %d", len(res))
	}

	return ratelimit.WindowCounter{
		Count:   int(res[0]),
		ResetAt: time.UnixMilli(res[1]),
	}, nil
}

// Peek implements ratelimit.WindowStore.
func (s *RedisStore) Peek(ctx context.Context, key string, now time.Time) (ratelimit.WindowCounter, bool, error) {
	vals, err := s.client.HMGet(ctx, s.prefix+key, "count", "reset_at").Result()
	if err != nil {
		return ratelimit.WindowCounter{}, false, fmt.Errorf("redis peek: %w", err)
	}

	count, okCount := parseField(vals[0])
	resetMs, okReset := parseField(vals[1])
	if !okCount || !okReset {
		return ratelimit.WindowCounter{}, false, nil
	}

	counter := ratelimit.WindowCounter{Count: int(count), ResetAt: time.UnixMilli(resetMs)}
	if counter.Expired(now) {
		return ratelimit.WindowCounter{}, false, nil
	}
	return counter, true, nil
}

// Sweep implements ratelimit.WindowStore. Redis expires keys on its own; the
// sweep removes windows that ended by the caller's clock but not Redis'.
func (s *RedisStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := s.sweepScript.Run(ctx, s.client, []string{iter.Val()}, now.UnixMilli()).Int()
		if err != nil {
			return removed, fmt.Errorf("redis sweep %s: %w", iter.Val(), err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan: %w", err)
	}
	return removed, nil
}

// KeyCount implements ratelimit.WindowStore.
func (s *RedisStore) KeyCount(ctx context.Context) (int, error) {
	count := 0
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan: %w", err)
	}
	return count, nil
}

func parseField(v interface{}) (int64, bool) {
	str, ok := v.(string)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// isContextErr reports errors caused by the caller rather than Redis.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var _ ratelimit.WindowStore = (*RedisStore)(nil)
