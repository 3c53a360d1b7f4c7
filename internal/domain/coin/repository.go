package coin

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("coin: not found")
	// ErrDuplicate is returned when a record with the same coin address exists.
	ErrDuplicate = errors.New("coin: duplicate coin address")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Repository defines persistence operations for coin records.
// Delete performs no ownership check; callers verify it first.
type Repository interface {
	Insert(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	GetByAddress(ctx context.Context, address string) (*Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	ListByCreator(ctx context.Context, wallet string, limit, offset int) ([]Record, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (Stats, error)
	CountByCreator(ctx context.Context, wallet string) (int64, error)
}

// NormalizePage clamps pagination arguments to the supported window.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
