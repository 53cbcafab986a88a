package token

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "session:v1:"

// ErrCacheMiss indicates the digest has no cached owner.
var ErrCacheMiss = errors.New("session token not cached")

// Cache maps token digests to their owning user in Redis so the auth
// middleware can skip a database round trip on the hot path. Entries are
// best-effort: the persistent store stays authoritative and rotation purges
// stale digests explicitly.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a Redis-backed session cache. A nil client yields a
// disabled cache whose lookups always miss.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Put records the digest → user mapping.
func (c *Cache) Put(ctx context.Context, digest []byte, userID string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, cacheKey(digest), userID, c.ttl).Err()
}

// Get resolves a digest to its user, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, digest []byte) (string, error) {
	if c == nil || c.client == nil {
		return "", ErrCacheMiss
	}
	val, err := c.client.Get(ctx, cacheKey(digest)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Invalidate drops the given digests, typically after a rotation revoked
// them in the store.
func (c *Cache) Invalidate(ctx context.Context, digests ...[]byte) error {
	if c == nil || c.client == nil || len(digests) == 0 {
		return nil
	}
	keys := make([]string, 0, len(digests))
	for _, d := range digests {
		keys = append(keys, cacheKey(d))
	}
	return c.client.Del(ctx, keys...).Err()
}

func cacheKey(digest []byte) string {
	return cachePrefix + hex.EncodeToString(digest)
}
