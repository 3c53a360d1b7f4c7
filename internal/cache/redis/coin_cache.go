package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"coinit-backend/internal/domain/coin"
	rplatform "coinit-backend/internal/platform/redis"
)

// ErrMiss is returned when the key is not cached.
var ErrMiss = errors.New("cache: miss")

const statsKey = "coinit:stats"

// CoinCache provides Redis-based caching for coin lookups and platform stats.
type CoinCache struct {
	client   *rplatform.Client
	ttl      time.Duration
	statsTTL time.Duration
}

func NewCoinCache(client *rplatform.Client, ttl, statsTTL time.Duration) *CoinCache {
	return &CoinCache{client: client, ttl: ttl, statsTTL: statsTTL}
}

func (c *CoinCache) keyByAddress(address string) string {
	return fmt.Sprintf("coinit:coin:address:%s", address)
}

// Set stores a record under its coin address.
func (c *CoinCache) Set(ctx context.Context, r *coin.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.keyByAddress(r.CoinAddress), b, c.ttl).Err()
}

// GetByAddress returns the cached record or ErrMiss.
func (c *CoinCache) GetByAddress(ctx context.Context, address string) (*coin.Record, error) {
	v, err := c.client.Get(ctx, c.keyByAddress(address)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	var r coin.Record
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetStats caches the aggregate counts for a short period.
func (c *CoinCache) SetStats(ctx context.Context, s coin.Stats) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, statsKey, b, c.statsTTL).Err()
}

// GetStats returns cached stats or ErrMiss.
func (c *CoinCache) GetStats(ctx context.Context) (coin.Stats, error) {
	v, err := c.client.Get(ctx, statsKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return coin.Stats{}, ErrMiss
		}
		return coin.Stats{}, err
	}
	var s coin.Stats
	if err := json.Unmarshal(v, &s); err != nil {
		return coin.Stats{}, err
	}
	return s, nil
}

// Invalidate drops the record entry and the stats snapshot.
func (c *CoinCache) Invalidate(ctx context.Context, address string) error {
	return c.client.Del(ctx, c.keyByAddress(address), statsKey).Err()
}
