package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"coinit-backend/internal/domain/coin"
	sqliteplatform "coinit-backend/internal/platform/sqlite"
)

var coinColumns = []string{
	"id", "creator_wallet", "name", "symbol", "coin_address", "COALESCE(tx_hash, '')",
	"source_url", "metadata_uri", "metadata_cid", "gateway_url", "metadata",
	"created_at", "updated_at",
}

// CoinRepository stores coin records in SQLite. Used for local runs and tests.
type CoinRepository struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

func NewCoinRepository(db *sql.DB) *CoinRepository {
	return &CoinRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
		now: time.Now,
	}
}

func (r *CoinRepository) Insert(ctx context.Context, c *coin.Record) error {
	c.Stamp(r.now())
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	var txHash any
	if c.TxHash != "" {
		txHash = c.TxHash
	}
	_, err = r.sb.Insert("coins").
		Columns("id", "creator_wallet", "name", "symbol", "coin_address", "tx_hash",
			"source_url", "metadata_uri", "metadata_cid", "gateway_url", "metadata",
			"created_at", "updated_at").
		Values(c.ID, c.CreatorWallet, c.Name, c.Symbol, c.CoinAddress, txHash,
			c.SourceURL, c.MetadataURI, c.MetadataCID, c.GatewayURL, string(meta),
			c.CreatedAt, c.UpdatedAt).
		ExecContext(ctx)
	if err != nil {
		if sqliteplatform.IsUniqueViolation(err) {
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
	row := r.sb.Select(coinColumns...).From("coins").Where(where).Limit(1).QueryRowContext(ctx)
	c, err := scanCoin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, coin.ErrNotFound
		}
		return nil, fmt.Errorf("select coin: %w", err)
	}
	return c, nil
}

func (r *CoinRepository) List(ctx context.Context, limit, offset int) ([]coin.Record, error) {
	return r.list(ctx, nil, limit, offset)
}

func (r *CoinRepository) ListByCreator(ctx context.Context, wallet string, limit, offset int) ([]coin.Record, error) {
	return r.list(ctx, sq.Eq{"creator_wallet": wallet}, limit, offset)
}

func (r *CoinRepository) list(ctx context.Context, where sq.Sqlizer, limit, offset int) ([]coin.Record, error) {
	limit, offset = coin.NormalizePage(limit, offset)
	b := r.sb.Select(coinColumns...).From("coins").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))
	if where != nil {
		b = b.Where(where)
	}

	rows, err := b.QueryContext(ctx)
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

func (r *CoinRepository) Delete(ctx context.Context, id string) error {
	res, err := r.sb.Delete("coins").Where(sq.Eq{"id": id}).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete coin: %w", err)
	}
	if n == 0 {
		return coin.ErrNotFound
	}
	return nil
}

func (r *CoinRepository) Stats(ctx context.Context) (coin.Stats, error) {
	var s coin.Stats
	err := r.sb.Select("COUNT(*)", "COUNT(DISTINCT creator_wallet)").From("coins").
		QueryRowContext(ctx).
		Scan(&s.TotalCoins, &s.TotalCreators)
	if err != nil {
		return coin.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

func (r *CoinRepository) CountByCreator(ctx context.Context, wallet string) (int64, error) {
	var n int64
	err := r.sb.Select("COUNT(*)").From("coins").Where(sq.Eq{"creator_wallet": wallet}).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count coins by creator: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
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

var _ coin.Repository = (*CoinRepository)(nil)
