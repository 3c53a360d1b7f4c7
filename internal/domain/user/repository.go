package user

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user: not found")

// Repository defines persistence operations for profiles.
type Repository interface {
	// Upsert inserts the profile or refreshes updated_at; a non-empty email
	// replaces the stored one.
	Upsert(ctx context.Context, wallet, email string) (*Profile, error)
	GetByWallet(ctx context.Context, wallet string) (*Profile, error)
}
