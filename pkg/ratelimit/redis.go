package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces limiter keys in a shared Redis.
const DefaultKeyPrefix = "ratelimit"

// fixedWindowScript admits a request unless the window already holds ARGV[1]
// admitted requests. Rejections are not counted. Returns {allowed, count, pttl}.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local current = tonumber(redis.call('GET', KEYS[1]) or '0')

if current >= limit then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    redis.call('PEXPIRE', KEYS[1], window)
    ttl = window
  end
  return {0, current, ttl}
end

current = redis.call('INCR', KEYS[1])
if current == 1 then
  redis.call('PEXPIRE', KEYS[1], window)
end

local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], window)
  ttl = window
end
return {1, current, ttl}
`)

// RedisLimiter is a fixed-window limiter whose counters live in Redis, so
// several server instances share one quota per key.
type RedisLimiter struct {
	client redis.Scripter
	rate   Rate
	prefix string
	policy string
}

// NewRedisLimiter returns a limiter storing keys as "<prefix>:<policy>:<caller>".
func NewRedisLimiter(client redis.Scripter, policy string, r Rate, prefix string) (*RedisLimiter, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is required", ErrInvalidConfig)
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisLimiter{client: client, rate: r, prefix: prefix, policy: policy}, nil
}

func (l *RedisLimiter) key(caller string) string {
	return l.prefix + ":" + l.policy + ":" + caller
}

// Allow runs the window script for key. The window start is tracked by Redis
// expiry, so now is only used to compute ResetAt.
func (l *RedisLimiter) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	res, err := fixedWindowScript.Run(ctx, l.client,
		[]string{l.key(key)},
		l.rate.Limit, l.rate.Window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limit %s: %w", l.policy, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("redis rate limit %s: unexpected reply %v", l.policy, res)
	}

	allowed, count := res[0] == 1, int(res[1])
	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl <= 0 || ttl > l.rate.Window {
		ttl = l.rate.Window
	}

	d := Decision{
		Allowed:   allowed,
		Limit:     l.rate.Limit,
		Remaining: l.rate.Limit - count,
		ResetAt:   now.Add(ttl),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if !allowed {
		d.RetryAfter = ttl
	}
	return d, nil
}

// Rate implements Limiter.
func (l *RedisLimiter) Rate() Rate {
	return l.rate
}
