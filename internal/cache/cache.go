// Package cache stores opaque byte payloads under hashed keys. Generated text and replayable
// idempotent responses both go through it.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key hashes the parts so prompts and credentials never appear in cache keys verbatim.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%s:%x", namespace, hash)
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

type lruEntry struct {
	value   []byte
	expires time.Time
}

// LRUCache is the in-process fallback when no Redis is configured.
type LRUCache struct {
	mu    sync.Mutex
	items *lru.Cache
	now   func() time.Time
}

func NewLRUCache(size int) (*LRUCache, error) {
	items, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{items: items, now: time.Now}, nil
}

// WithClock overrides the clock used for expiry.
func (c *LRUCache) WithClock(now func() time.Time) *LRUCache {
	c.now = now
	return c
}

func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(lruEntry)
	if !entry.expires.IsZero() && !c.now().Before(entry.expires) {
		c.items.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *LRUCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = c.now().Add(ttl)
	}
	c.items.Add(key, entry)
	return nil
}
