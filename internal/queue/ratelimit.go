package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript implements the refill formula from the queue
// contract atomically: tokens := min(burst, last_tokens + elapsed*rate);
// if tokens >= 1, decrement and allow. Persists (tokens, now_ms) with
// a >=10 minute TTL so idle buckets evict themselves.
const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_seconds = tonumber(ARGV[4])

local bucket = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(bucket[1])
local last_ts = tonumber(bucket[2])

if tokens == nil then
  tokens = burst
  last_ts = now_ms
end

local elapsed_ms = now_ms - last_ts
if elapsed_ms < 0 then elapsed_ms = 0 end
tokens = math.min(burst, tokens + (elapsed_ms / 1000.0) * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now_ms)
redis.call("EXPIRE", key, ttl_seconds)

return {allowed, tostring(tokens)}
`

type RateLimitResult struct {
	Allowed   bool
	Remaining float64
}

// RateLimiter is a server-side atomic token bucket keyed by
// (principal, scope).
type RateLimiter struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRateLimiter(rdb *redis.Client) *RateLimiter {
	return &RateLimiter{rdb: rdb, script: redis.NewScript(tokenBucketScript)}
}

func bucketKey(principal, scope string) string {
	return fmt.Sprintf("scout:ratelimit:%s:%s", principal, scope)
}

// Allow attempts to consume one token from the bucket for
// (principal, scope), refilling at rate tokens/sec up to burst.
func (r *RateLimiter) Allow(ctx context.Context, principal, scope string, rate float64, burst int) (RateLimitResult, error) {
	nowMS := time.Now().UnixMilli()
	res, err := r.script.Run(ctx, r.rdb, []string{bucketKey(principal, scope)},
		rate, burst, nowMS, 600).Result()
	if err != nil {
		return RateLimitResult{}, fmt.Errorf("run token bucket script: %w", err)
	}
	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return RateLimitResult{}, fmt.Errorf("unexpected token bucket reply: %v", res)
	}
	allowed, _ := parts[0].(int64)
	var remaining float64
	if s, ok := parts[1].(string); ok {
		fmt.Sscanf(s, "%f", &remaining)
	}
	return RateLimitResult{Allowed: allowed == 1, Remaining: remaining}, nil
}
