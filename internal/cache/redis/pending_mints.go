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

const DefaultPendingTTL = 7 * 24 * time.Hour

// PendingMints journals records whose mint succeeded but whose insert failed,
// so a later reconcile can finish the write without re-minting.
type PendingMints struct {
	client *rplatform.Client
	ttl    time.Duration
}

func NewPendingMints(client *rplatform.Client, ttl time.Duration) *PendingMints {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &PendingMints{client: client, ttl: ttl}
}

func (p *PendingMints) key(address string) string {
	return fmt.Sprintf("coinit:pending:%s", address)
}

func (p *PendingMints) Save(ctx context.Context, r *coin.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key(r.CoinAddress), b, p.ttl).Err()
}

// Get returns the journaled record or ErrMiss.
func (p *PendingMints) Get(ctx context.Context, address string) (*coin.Record, error) {
	v, err := p.client.Get(ctx, p.key(address)).Bytes()
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

func (p *PendingMints) Delete(ctx context.Context, address string) error {
	return p.client.Del(ctx, p.key(address)).Err()
}
