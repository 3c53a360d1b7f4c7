package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "coinit-backend/internal/domain/user"
	rplatform "coinit-backend/internal/platform/redis"
)

// UserCache provides Redis-based caching for wallet profiles.
type UserCache struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewUserCache(client *rplatform.Client, ttl time.Duration) *UserCache {
	return &UserCache{client: client, ttl: ttl}
}

func (c *UserCache) keyByWallet(wallet string) string {
	return fmt.Sprintf("coinit:user:wallet:%s", wallet)
}

func (c *UserCache) Set(ctx context.Context, p *domain.Profile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyByWallet(p.WalletAddress), b, c.ttl).Err()
}

// GetByWallet returns the cached profile or ErrMiss.
func (c *UserCache) GetByWallet(ctx context.Context, wallet string) (*domain.Profile, error) {
	v, err := c.client.Get(ctx, c.keyByWallet(wallet)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var p domain.Profile
	if err := json.Unmarshal(v, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
