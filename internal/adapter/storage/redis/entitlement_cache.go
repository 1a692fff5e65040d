package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// EntitlementCache implements ports.EntitlementCache using Redis. It fronts
// the entitlements table on the token-validation hot path.
type EntitlementCache struct {
	client *goredis.Client
	prefix string
}

// NewEntitlementCache creates a new Redis-backed entitlement cache.
func NewEntitlementCache(client *goredis.Client) *EntitlementCache {
	return &EntitlementCache{
		client: client,
		prefix: "entitlement:",
	}
}

// Get retrieves a cached entitlement by token.
// Returns nil, nil if the token is not cached.
func (c *EntitlementCache) Get(ctx context.Context, token string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+token).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis entitlement get: %w", err)
	}
	return val, nil
}

// Set stores an entitlement in the cache with TTL.
func (c *EntitlementCache) Set(ctx context.Context, token string, value []byte, ttl time.Duration) error {
	err := c.client.Set(ctx, c.prefix+token, value, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis entitlement set: %w", err)
	}
	return nil
}

// Invalidate drops a cached entitlement. Called when the background sweep
// changes an entitlement's status so a revocation is visible immediately.
func (c *EntitlementCache) Invalidate(ctx context.Context, token string) error {
	if err := c.client.Del(ctx, c.prefix+token).Err(); err != nil {
		return fmt.Errorf("redis entitlement del: %w", err)
	}
	return nil
}
