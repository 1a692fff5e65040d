package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// NonceStore implements ports.NonceStore using Redis SET NX. It tracks
// consumed transfer-authorization nonces so a signed authorization can never
// settle twice.
type NonceStore struct {
	client *goredis.Client
	prefix string
}

// NewNonceStore creates a new Redis-backed nonce store.
func NewNonceStore(client *goredis.Client) *NonceStore {
	return &NonceStore{
		client: client,
		prefix: "authnonce:",
	}
}

// CheckAndSet atomically checks if a nonce exists, sets it if not.
// Returns true if the nonce is new (valid), false if already used.
func (s *NonceStore) CheckAndSet(ctx context.Context, payer string, nonce string, ttl time.Duration) (bool, error) {
	key := s.prefix + payer + ":" + nonce
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists — nonce was already used
			return false, nil
		}
		return false, fmt.Errorf("redis nonce check: %w", err)
	}
	return result == "OK", nil
}

// Release drops a burned nonce. Used when a settlement attempt failed
// upstream: nothing moved on-chain, so the authorization stays retryable.
func (s *NonceStore) Release(ctx context.Context, payer string, nonce string) error {
	key := s.prefix + payer + ":" + nonce
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis nonce release: %w", err)
	}
	return nil
}
