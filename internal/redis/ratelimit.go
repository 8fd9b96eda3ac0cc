package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{ip}:payout_create - per-minute payout creations

// RateLimitConfig contains configuration for rate limiting
type RateLimitConfig struct {
	CreateLimit  int           // Max payout creations per window
	CreateWindow time.Duration // Creation rate limit window
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		CreateLimit:  120,
		CreateWindow: 60 * time.Second,
	}
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *goredis.Client
	config RateLimitConfig
}

// RateLimitResult contains the result of a rate limit check
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

// Atomic fixed-window counter. Returns {allowed, remaining, ttl}.
var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		current = redis.call('INCR', key)
		if current == 1 then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current, ttl}
	end
	return {0, 0, ttl}
`)

func NewRateLimiter(client *goredis.Client, config RateLimitConfig) *RateLimiter {
	if config.CreateWindow <= 0 {
		config.CreateWindow = 60 * time.Second
	}
	return &RateLimiter{
		client: client,
		config: config,
	}
}

func createKey(clientID string) string {
	return fmt.Sprintf("ratelimit:%s:payout_create", clientID)
}

// AllowCreate checks if a client can create another payout
func (r *RateLimiter) AllowCreate(ctx context.Context, clientID string) (*RateLimitResult, error) {
	return r.checkLimit(ctx, createKey(clientID), r.config.CreateLimit, r.config.CreateWindow)
}

// ResetCreate clears the creation counter of a client
func (r *RateLimiter) ResetCreate(ctx context.Context, clientID string) error {
	return r.client.Del(ctx, createKey(clientID)).Err()
}

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	if limit <= 0 {
		return &RateLimitResult{Allowed: true, Remaining: -1, Limit: limit}, nil
	}

	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}
	allowed, _ := resultSlice[0].(int64)
	remaining, _ := resultSlice[1].(int64)
	ttl, _ := resultSlice[2].(int64)

	return &RateLimitResult{
		Allowed:   allowed == 1,
		Remaining: int(remaining),
		ResetIn:   time.Duration(ttl) * time.Second,
		Limit:     limit,
	}, nil
}
