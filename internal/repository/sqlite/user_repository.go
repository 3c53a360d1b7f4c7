package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"coinit-backend/internal/domain/user"
)

type UserRepository struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
		now: time.Now,
	}
}

func (r *UserRepository) Upsert(ctx context.Context, wallet, email string) (*user.Profile, error) {
	now := r.now().UTC()
	var p user.Profile
	err := r.sb.Insert("users").
		Columns("wallet_address", "email", "created_at", "updated_at").
		Values(wallet, sq.Expr("NULLIF(?, '')", email), now, now).
		Suffix(`ON CONFLICT (wallet_address) DO UPDATE SET
		email = COALESCE(excluded.email, users.email),
		updated_at = excluded.updated_at
		RETURNING wallet_address, COALESCE(email, ''), created_at, updated_at`).
		QueryRowContext(ctx).
		Scan(&p.WalletAddress, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func (r *UserRepository) GetByWallet(ctx context.Context, wallet string) (*user.Profile, error) {
	var p user.Profile
	err := r.sb.Select("wallet_address", "COALESCE(email, '')", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"wallet_address": wallet}).
		QueryRowContext(ctx).
		Scan(&p.WalletAddress, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

var _ user.Repository = (*UserRepository)(nil)
