package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"coinit-backend/internal/domain/user"
	pgplatform "coinit-backend/internal/platform/postgres"
)

// UserRepository stores wallet profiles in Postgres.
type UserRepository struct {
	pool *pgplatform.Pool
	now  func() time.Time
}

func NewUserRepository(pool *pgplatform.Pool) *UserRepository {
	return &UserRepository{pool: pool, now: time.Now}
}

// Upsert inserts a profile or refreshes updated_at. An empty email keeps the stored one.
func (r *UserRepository) Upsert(ctx context.Context, wallet, email string) (*user.Profile, error) {
	now := r.now().UTC()
	q, args, err := psql.Insert("users").
		Columns("wallet_address", "email", "created_at", "updated_at").
		Values(wallet, sq.Expr("NULLIF(?::text, '')", email), now, now).
		Suffix(`ON CONFLICT (wallet_address) DO UPDATE SET
		email = COALESCE(EXCLUDED.email, users.email),
		updated_at = EXCLUDED.updated_at
		RETURNING wallet_address, COALESCE(email, ''), created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert user: %w", err)
	}

	var p user.Profile
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&p.WalletAddress, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

// GetByWallet returns user.ErrNotFound when the wallet has no profile.
func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*user.Profile, error) {
	q, args, err := psql.Select("wallet_address", "COALESCE(email, '')", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"wallet_address": wallet}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user: %w", err)
	}
	var p user.Profile
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&p.WalletAddress, &p.Email, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if pgplatform.IsNoRows(err) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

var _ user.Repository = (*UserRepository)(nil)
