package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache is the logout denylist: a revoked token's jti is kept
// until the token would have expired anyway.
type TokenCache struct {
	client *redis.Client
}

func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

func (c *TokenCache) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, "revoked_token:"+jti, "1", ttl).Err()
}

func (c *TokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := c.client.Get(ctx, "revoked_token:"+jti).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
