package user

import (
	"context"
	"errors"
	"strings"

	apperrors "coinit-backend/internal/common/errors"
	"coinit-backend/internal/common/validation"
	domain "coinit-backend/internal/domain/user"
)

// ProfileCache is the optional cache in front of the repository.
type ProfileCache interface {
	Set(ctx context.Context, p *domain.Profile) error
	GetByWallet(ctx context.Context, wallet string) (*domain.Profile, error)
}

// Service orchestrates profile access with repository and cache.
type Service struct {
	repo  domain.Repository
	cache ProfileCache
}

func NewService(repo domain.Repository, cache ProfileCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// TouchSession records that wallet signed in, optionally with an email.
func (s *Service) TouchSession(ctx context.Context, wallet, email string) (*domain.Profile, error) {
	w, err := validation.NormalizeWallet(wallet)
	if err != nil {
		return nil, apperrors.NewValidationError("wallet_address", err.Error())
	}
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, apperrors.NewValidationError("email", err.Error())
	}
	p, err := s.repo.Upsert(ctx, w, email)
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert profile", err)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, wallet string) (*domain.Profile, error) {
	w, err := validation.NormalizeWallet(wallet)
	if err != nil {
		return nil, apperrors.NewValidationError("wallet_address", err.Error())
	}
	if s.cache != nil {
		if p, err := s.cache.GetByWallet(ctx, w); err == nil && p != nil {
			return p, nil
		}
	}
	p, err := s.repo.GetByWallet(ctx, w)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("user", w)
		}
		return nil, apperrors.NewDatabaseError("get profile", err)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, p)
	}
	return p, nil
}
