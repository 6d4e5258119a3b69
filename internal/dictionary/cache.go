package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores parsed entries by lowercased word. Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, word string) (*Entry, bool, error)
	Set(ctx context.Context, word string, entry *Entry) error
}

type memoryItem struct {
	entry    *Entry
	storedAt time.Time
}

// MemoryCache is an in-process Cache with a TTL and a maximum size. When
// full, the oldest entry is evicted.
type MemoryCache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu    sync.Mutex
	items map[string]memoryItem
}

// NewMemoryCache creates a MemoryCache. maxEntries <= 0 means unbounded.
func NewMemoryCache(ttl time.Duration, maxEntries int) *MemoryCache {
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		items:      make(map[string]memoryItem),
	}
}

func (c *MemoryCache) Get(_ context.Context, word string) (*Entry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[word]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(item.storedAt) >= c.ttl {
		delete(c.items, word)
		return nil, false, nil
	}
	return item.entry, true, nil
}

func (c *MemoryCache) Set(_ context.Context, word string, entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[word]; !exists && c.maxEntries > 0 && len(c.items) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.items[word] = memoryItem{entry: entry, storedAt: now}
	return nil
}

// evictLocked drops expired entries, and the oldest one if none had expired.
func (c *MemoryCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		removed   bool
	)
	for k, item := range c.items {
		if now.Sub(item.storedAt) >= c.ttl {
			delete(c.items, k)
			removed = true
			continue
		}
		if oldestKey == "" || item.storedAt.Before(oldestAt) {
			oldestKey, oldestAt = k, item.storedAt
		}
	}
	if !removed && oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// RedisCache stores entries as JSON in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a RedisCache using client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func redisKey(word string) string {
	return "dictionary:" + word
}

func (c *RedisCache) Get(ctx context.Context, word string) (*Entry, bool, error) {
	data, err := c.client.Get(ctx, redisKey(word)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached entry: %w", err)
	}
	return &entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, word string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, redisKey(word), data, c.ttl).Err()
}
