package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/complyline/assessor/internal/core/ports"
)

// admitScript performs the whole read-modify-write atomically so that two
// concurrent requests for the same identity can never both consume the
// window's last slot. Returns {allowed, retry_after_ms}.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])

local fields = redis.call('HMGET', key, 'start', 'count')
local start = tonumber(fields[1])
local count = tonumber(fields[2])

if start == nil or now - start >= window then
  redis.call('HSET', key, 'start', now, 'count', 1)
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end

if count < max then
  redis.call('HINCRBY', key, 'count', 1)
  return {1, 0}
end

return {0, window - (now - start)}
`)

// RedisLimiter stores windows in a shared redis so admission counts
// survive instance cold starts and are visible across replicas.
type RedisLimiter struct {
	client *redis.Client
	name   string
	cfg    Config
}

// NewRedisLimiter creates a limiter namespaced by name, so the sync and
// async pipelines account their identities independently.
func NewRedisLimiter(client *redis.Client, name string, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		name:   name,
		cfg:    cfg.normalized(),
	}
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
}

func (l *RedisLimiter) Admit(ctx context.Context, identity string, now time.Time) (ports.Decision, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", l.name, identity)

	raw, err := admitScript.Run(ctx, l.client, []string{key},
		now.UnixMilli(),
		l.cfg.Window.Milliseconds(),
		l.cfg.MaxRequests,
	).Result()
	if err != nil {
		return ports.Decision{}, fmt.Errorf("rate limit admit: %w", err)
	}

	reply, ok := raw.([]interface{})
	if !ok || len(reply) != 2 {
		return ports.Decision{}, fmt.Errorf("rate limit admit: unexpected reply %v", raw)
	}
	allowed, _ := reply[0].(int64)
	retryAfterMs, _ := reply[1].(int64)

	return ports.Decision{
		Allowed:    allowed == 1,
		RetryAfter: time.Duration(retryAfterMs) * time.Millisecond,
	}, nil
}
