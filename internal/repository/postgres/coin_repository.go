package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"coinit-backend/internal/domain/coin"
	pgplatform "coinit-backend/internal/platform/postgres"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var coinColumns = []string{
	"id", "creator_wallet", "name", "symbol", "coin_address", "COALESCE(tx_hash, '')",
	"source_url", "metadata_uri", "metadata_cid", "gateway_url", "metadata",
	"created_at", "updated_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

// CoinRepository stores coin records in Postgres.
type CoinRepository struct {
	pool *pgplatform.Pool
	now  func() time.Time
}

func NewCoinRepository(pool *pgplatform.Pool) *CoinRepository {
	return &CoinRepository{pool: pool, now: time.Now}
}

// Insert writes a new record. A second record for the same coin address
// yields coin.ErrDuplicate.
func (r *CoinRepository) Insert(ctx context.Context, c *coin.Record) error {
	c.Stamp(r.now())
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	q, args, err := psql.Insert("coins").
		Columns("id", "creator_wallet", "name", "symbol", "coin_address", "tx_hash",
			"source_url", "metadata_uri", "metadata_cid", "gateway_url", "metadata",
			"created_at", "updated_at").
		Values(c.ID, c.CreatorWallet, c.Name, c.Symbol, c.CoinAddress, nullIfEmpty(c.TxHash),
			c.SourceURL, c.MetadataURI, c.MetadataCID, c.GatewayURL, string(meta),
			c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert coin: %w", err)
	}

	if _, err := r.pool.Exec(ctx, q, args...); err != nil {
		if pgplatform.IsUniqueViolation(err) {
			return coin.ErrDuplicate
		}
		return fmt.Errorf("insert coin: %w", err)
	}
	return nil
}

func (r *CoinRepository) GetByID(ctx context.Context, id string) (*coin.Record, error) {
	return r.getOne(ctx, sq.Eq{"id": id})
}

func (r *CoinRepository) GetByAddress(ctx context.Context, address string) (*coin.Record, error) {
	return r.getOne(ctx, sq.Eq{"coin_address": address})
}

func (r *CoinRepository) getOne(ctx context.Context, where sq.Eq) (*coin.Record, error) {
	q, args, err := psql.Select(coinColumns...).From("coins").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select coin: %w", err)
	}
	c, err := scanCoin(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if pgplatform.IsNoRows(err) {
			return nil, coin.ErrNotFound
		}
		return nil, fmt.Errorf("select coin: %w", err)
	}
	return c, nil
}

// List returns records newest first.
func (r *CoinRepository) List(ctx context.Context, limit, offset int) ([]coin.Record, error) {
	return r.list(ctx, nil, limit, offset)
}

// ListByCreator returns the creator's records newest first.
func (r *CoinRepository) ListByCreator(ctx context.Context, wallet string, limit, offset int) ([]coin.Record, error) {
	return r.list(ctx, sq.Eq{"creator_wallet": wallet}, limit, offset)
}

func (r *CoinRepository) list(ctx context.Context, where sq.Sqlizer, limit, offset int) ([]coin.Record, error) {
	limit, offset = coin.NormalizePage(limit, offset)
	b := psql.Select(coinColumns...).From("coins").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if where != nil {
		b = b.Where(where)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list coins: %w", err)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list coins: %w", err)
	}
	defer rows.Close()

	out := make([]coin.Record, 0, limit)
	for rows.Next() {
		c, err := scanCoin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Delete removes a record by id. No ownership check happens here.
func (r *CoinRepository) Delete(ctx context.Context, id string) error {
	q, args, err := psql.Delete("coins").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete coin: %w", err)
	}
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return coin.ErrNotFound
	}
	return nil
}

// Stats scans the whole table; no running counters are kept.
func (r *CoinRepository) Stats(ctx context.Context) (coin.Stats, error) {
	q, args, err := psql.Select("COUNT(*)", "COUNT(DISTINCT creator_wallet)").From("coins").ToSql()
	if err != nil {
		return coin.Stats{}, fmt.Errorf("build stats: %w", err)
	}
	var s coin.Stats
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&s.TotalCoins, &s.TotalCreators); err != nil {
		return coin.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

func (r *CoinRepository) CountByCreator(ctx context.Context, wallet string) (int64, error) {
	q, args, err := psql.Select("COUNT(*)").From("coins").Where(sq.Eq{"creator_wallet": wallet}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int64
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count coins by creator: %w", err)
	}
	return n, nil
}

func scanCoin(row rowScanner) (*coin.Record, error) {
	var (
		c    coin.Record
		meta []byte
	)
	if err := row.Scan(&c.ID, &c.CreatorWallet, &c.Name, &c.Symbol, &c.CoinAddress, &c.TxHash,
		&c.SourceURL, &c.MetadataURI, &c.MetadataCID, &c.GatewayURL, &meta,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &c.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ coin.Repository = (*CoinRepository)(nil)
