package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyCache stores PEM-encoded public keys by kid with a TTL
type KeyCache interface {
	Get(ctx context.Context, kid string) (string, bool, error)
	Set(ctx context.Context, kid, pemText string, ttl time.Duration) error
}

type memoryEntry struct {
	pem     string
	expires time.Time
}

// MemoryKeyCache is a process-local KeyCache
type MemoryKeyCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryKeyCache creates an empty in-process cache
func NewMemoryKeyCache() *MemoryKeyCache {
	return &MemoryKeyCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached PEM for kid when present and not expired
func (c *MemoryKeyCache) Get(_ context.Context, kid string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[kid]
	c.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if !c.now().Before(entry.expires) {
		c.mu.Lock()
		if cur, ok := c.entries[kid]; ok && cur.expires.Equal(entry.expires) {
			delete(c.entries, kid)
		}
		c.mu.Unlock()
		return "", false, nil
	}
	return entry.pem, true, nil
}

// Set stores pemText for kid until ttl elapses
func (c *MemoryKeyCache) Set(_ context.Context, kid, pemText string, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[kid] = memoryEntry{pem: pemText, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisKeyCache shares keys between instances behind the same ALB
type RedisKeyCache struct {
	client *redis.Client
	prefix string
}

// NewRedisKeyCache creates a Redis-backed KeyCache
func NewRedisKeyCache(client *redis.Client) *RedisKeyCache {
	return &RedisKeyCache{
		client: client,
		prefix: "oidc:pubkey:",
	}
}

// Get returns the cached PEM for kid; a missing key is not an error
func (c *RedisKeyCache) Get(ctx context.Context, kid string) (string, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+kid).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get public key from redis: %w", err)
	}
	return val, true, nil
}

// Set stores pemText for kid with ttl
func (c *RedisKeyCache) Set(ctx context.Context, kid, pemText string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+kid, pemText, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set public key in redis: %w", err)
	}
	return nil
}
