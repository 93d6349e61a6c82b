package assist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss reports that no cached answer exists for the fingerprint.
var ErrCacheMiss = errors.New("assist: cache miss")

// Fingerprint derives the cache key: identical prompt, system prompt and
// sampling parameters always hit the same entry.
func Fingerprint(req GenerateRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%g", req.Prompt, req.SystemPrompt, req.MaxTokens, req.Temperature)
	return hex.EncodeToString(h.Sum(nil))
}

// Cache stores generated answers by fingerprint.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// RedisCache backs the answer cache with Redis so cached completions survive
// restarts and are shared across instances.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "assist:answer:"}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return v, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// MemoryCache is the fallback when no Redis address is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (c *MemoryCache) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}
