package generator

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 24 * time.Hour

// RedisResultCache caches generated mappings in Redis/Dragonfly, keyed by a
// hash of the job-description text. Cache errors degrade to a live call.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisResultCache creates a cache with the default TTL.
func NewRedisResultCache(client *redis.Client) *RedisResultCache {
	return &RedisResultCache{
		client: client,
		ttl:    defaultCacheTTL,
	}
}

func (c *RedisResultCache) Get(ctx context.Context, jobDescription string) (map[string][]string, bool) {
	data, err := c.client.Get(ctx, cacheKey(jobDescription)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("generation cache read failed", "error", err)
		}
		return nil, false
	}

	var payload map[string][]string
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("generation cache entry corrupt", "error", err)
		return nil, false
	}
	return payload, true
}

func (c *RedisResultCache) Set(ctx context.Context, jobDescription string, payload map[string][]string) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(jobDescription), data, c.ttl).Err(); err != nil {
		slog.Warn("generation cache write failed", "error", err)
	}
}

func cacheKey(jobDescription string) string {
	sum := sha256.Sum256([]byte(jobDescription))
	return fmt.Sprintf("genpath:%x", sum)
}
