// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript mirrors MemoryLimiter: start a window at 1, refuse without
// incrementing once the limit is reached, let the key expire with the window.
var allowScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	redis.call("SET", KEYS[1], 1, "PX", ARGV[2])
	return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call("INCR", KEYS[1])
return 1
`)

// RedisLimiter shares the fixed-window counters between server instances
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(ctx context.Context, url string, limit int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisLimiter{client: c, limit: limit, window: window, prefix: "potm:ratelimit:"}, nil
}

func (rl *RedisLimiter) Allow(ctx context.Context, id string) (bool, error) {
	res, err := allowScript.Run(ctx, rl.client, []string{rl.prefix + id}, rl.limit, rl.window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("error running rate limit script: %w", err)
	}
	return res == 1, nil
}

func (rl *RedisLimiter) Close() error {
	if err := rl.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
