package coins

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "coinit-backend/internal/common/errors"
	"coinit-backend/internal/common/logger"
	"coinit-backend/internal/common/validation"
	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/content"
	"coinit-backend/internal/observability"
	"coinit-backend/internal/service/metadata"
	"coinit-backend/internal/service/minter"
)

// Stage names a step of coin creation.
type Stage string

const (
	StageIdle               Stage = "idle"
	StageExtracting         Stage = "extracting"
	StageDeriving           Stage = "deriving"
	StagePublishingMetadata Stage = "publishing_metadata"
	StageMinting            Stage = "minting"
	StagePersisting         Stage = "persisting"
	StageNotifying          Stage = "notifying"
	StageDone               Stage = "done"
)

const (
	OutcomeDone            = "done"
	OutcomeFailed          = "failed"
	OutcomePartiallyFailed = "partially_failed"
)

// ContentExtractor turns a URL into structured content.
type ContentExtractor interface {
	Extract(ctx context.Context, sourceURL string) (*content.Scraped, error)
}

// MetadataPublisher pins metadata documents.
type MetadataPublisher interface {
	Publish(ctx context.Context, doc coin.MetadataDocument) (*metadata.Published, error)
}

// Cache is the optional read-through cache for records and stats.
type Cache interface {
	Set(ctx context.Context, r *coin.Record) error
	GetByAddress(ctx context.Context, address string) (*coin.Record, error)
	SetStats(ctx context.Context, s coin.Stats) error
	GetStats(ctx context.Context) (coin.Stats, error)
	Invalidate(ctx context.Context, address string) error
}

// Journal keeps records whose mint succeeded but whose insert did not.
type Journal interface {
	Save(ctx context.Context, r *coin.Record) error
	Get(ctx context.Context, address string) (*coin.Record, error)
	Delete(ctx context.Context, address string) error
}

// Notifier announces persisted coins. It must not block on delivery.
type Notifier interface {
	NotifyCreated(r *coin.Record)
}

// Deps are the collaborators of Service. Cache, Journal, Notifier and
// Metrics are optional.
type Deps struct {
	Extractor ContentExtractor
	Publisher MetadataPublisher
	Minter    minter.Minter
	Repo      coin.Repository
	Cache     Cache
	Journal   Journal
	Notifier  Notifier
	Metrics   *observability.Metrics
}

type Options struct {
	PlatformReferrer string
	// Now defaults to time.Now.
	Now func() time.Time
}

// CreateRequest starts one coin creation.
type CreateRequest struct {
	SourceURL string
	Wallet    minter.WalletSession
}

// Service runs the coin creation pipeline and serves coin reads.
type Service struct {
	deps     Deps
	referrer string
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(d Deps, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{deps: d, referrer: opts.PlatformReferrer, now: now, log: logger.With("coins")}
}

// CreateFromURL scrapes sourceURL, pins its metadata, mints a coin for the
// caller's wallet and records it. Failures before the insert leave no local
// state. A failed insert after a successful mint is reported as
// PARTIAL_FAILURE with the on-chain address and is never retried here.
func (s *Service) CreateFromURL(ctx context.Context, req CreateRequest) (*coin.Record, error) {
	log := s.log.With().Str("source_url", req.SourceURL).Str("wallet", req.Wallet.Address).Logger()

	u, err := validation.ValidateSourceURL(req.SourceURL)
	if err != nil {
		return nil, s.fail(log, StageIdle, apperrors.NewInvalidInputError("source_url", err.Error()))
	}
	wallet, err := validation.NormalizeWallet(req.Wallet.Address)
	if err != nil {
		return nil, s.fail(log, StageIdle, apperrors.NewInvalidInputError("wallet_address", err.Error()))
	}
	if strings.TrimSpace(req.Wallet.Token) == "" {
		return nil, s.fail(log, StageIdle, apperrors.NewInvalidInputError("wallet_session", "a signing session is required"))
	}
	sourceURL := u.String()

	var scraped *content.Scraped
	err = s.stage(ctx, log, StageExtracting, func(ctx context.Context) error {
		var err error
		scraped, err = s.deps.Extractor.Extract(ctx, sourceURL)
		return err
	})
	if err != nil {
		return nil, s.fail(log, StageExtracting,
			apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed, "Could not read the blog post").WithDetail("source_url", sourceURL))
	}

	log.Debug().Str("stage", string(StageDeriving)).Msg("pipeline stage")
	name := DeriveTokenName(scraped.Title)
	symbol := DeriveTokenSymbol(scraped.Title)
	doc := metadata.BuildDocument(scraped, name)

	var pub *metadata.Published
	err = s.stage(ctx, log, StagePublishingMetadata, func(ctx context.Context) error {
		var err error
		pub, err = s.deps.Publisher.Publish(ctx, doc)
		return err
	})
	if err != nil {
		return nil, s.fail(log, StagePublishingMetadata,
			apperrors.Wrap(err, apperrors.ErrCodeMetadataPublishFailed, "Could not publish coin metadata"))
	}

	var minted *minter.Result
	err = s.stage(ctx, log, StageMinting, func(ctx context.Context) error {
		var err error
		minted, err = s.deps.Minter.Mint(ctx, minter.Params{
			Name:             name,
			Symbol:           symbol,
			URI:              pub.URI,
			PayoutRecipient:  wallet,
			PlatformReferrer: s.referrer,
		}, minter.WalletSession{Address: wallet, Token: req.Wallet.Token})
		return err
	})
	if err != nil {
		return nil, s.fail(log, StageMinting,
			apperrors.Wrap(err, apperrors.ErrCodeMintFailed, "Coin could not be minted").WithDetail("metadata_uri", pub.URI))
	}
	log = log.With().Str("coin_address", minted.Address).Logger()

	record := &coin.Record{
		CreatorWallet: wallet,
		Name:          name,
		Symbol:        symbol,
		CoinAddress:   minted.Address,
		TxHash:        minted.TxHash,
		SourceURL:     sourceURL,
		MetadataURI:   pub.URI,
		MetadataCID:   pub.CID,
		GatewayURL:    pub.GatewayURL,
		Metadata:      metadata.Snapshot(scraped, pub.Document),
	}
	record.Stamp(s.now())

	err = s.stage(ctx, log, StagePersisting, func(ctx context.Context) error {
		return s.deps.Repo.Insert(ctx, record)
	})
	if err != nil {
		s.deps.Metrics.RunFinished(OutcomePartiallyFailed)
		if errors.Is(err, coin.ErrDuplicate) {
			log.Error().Err(err).Str("stage", string(StagePersisting)).Msg("coin address already recorded")
			return nil, apperrors.NewConstraintViolationError("coin", "coin address already recorded").
				WithDetail("coin_address", record.CoinAddress)
		}
		s.journal(ctx, log, record)
		log.Error().Err(err).Str("stage", string(StagePersisting)).Msg("coin minted but not recorded")
		return nil, apperrors.NewPartialFailureError(record.CoinAddress, err).
			WithDetail("pending_record", record)
	}

	s.invalidate(ctx, log, record.CoinAddress)
	log.Debug().Str("stage", string(StageNotifying)).Msg("pipeline stage")
	s.notify(log, record)

	s.deps.Metrics.RunFinished(OutcomeDone)
	log.Info().Str("stage", string(StageDone)).Str("id", record.ID).Msg("coin created")
	return record, nil
}

// Reconcile records a minted coin that is missing locally. When a record for
// address already exists it is returned with created=false. Otherwise the
// journaled mint result is inserted; a supplied record must agree with it.
// Without a journal entry the supplied record is accepted only from its
// creator, identified by requester. It never mints.
func (s *Service) Reconcile(ctx context.Context, address string, supplied *coin.Record, requester string) (*coin.Record, bool, error) {
	addr, err := validation.NormalizeWallet(address)
	if err != nil {
		return nil, false, apperrors.NewInvalidInputError("coin_address", err.Error())
	}
	log := s.log.With().Str("coin_address", addr).Logger()

	existing, err := s.deps.Repo.GetByAddress(ctx, addr)
	switch {
	case err == nil:
		s.clearJournal(ctx, log, addr)
		s.deps.Metrics.Reconciled("existing")
		return existing, false, nil
	case !errors.Is(err, coin.ErrNotFound):
		return nil, false, apperrors.NewDatabaseError("get coin by address", err)
	}

	record, err := s.pendingRecord(ctx, log, addr, supplied, requester)
	if err != nil {
		return nil, false, err
	}
	if err := s.checkPending(addr, record); err != nil {
		return nil, false, err
	}
	record.Stamp(s.now())

	if err := s.deps.Repo.Insert(ctx, record); err != nil {
		if errors.Is(err, coin.ErrDuplicate) {
			existing, gerr := s.deps.Repo.GetByAddress(ctx, addr)
			if gerr != nil {
				return nil, false, apperrors.NewDatabaseError("get coin by address", gerr)
			}
			s.clearJournal(ctx, log, addr)
			s.deps.Metrics.Reconciled("existing")
			return existing, false, nil
		}
		s.deps.Metrics.Reconciled("failed")
		return nil, false, apperrors.NewDatabaseError("insert coin", err)
	}

	s.clearJournal(ctx, log, addr)
	s.invalidate(ctx, log, addr)
	s.notify(log, record)
	s.deps.Metrics.Reconciled("created")
	log.Info().Str("id", record.ID).Str("creator", record.CreatorWallet).Msg("coin reconciled")
	return record, true, nil
}

// pendingRecord picks the record to insert for addr. The journal entry wins
// whenever one exists.
func (s *Service) pendingRecord(ctx context.Context, log zerolog.Logger, addr string, supplied *coin.Record, requester string) (*coin.Record, error) {
	if s.deps.Journal != nil {
		journaled, err := s.deps.Journal.Get(ctx, addr)
		if err == nil {
			if supplied != nil && !samePending(addr, journaled, supplied) {
				s.deps.Metrics.Reconciled("rejected")
				log.Warn().Str("requester", requester).Msg("reconcile body contradicts journaled mint")
				return nil, apperrors.NewConflictError("pending mint", "record does not match the minted coin").
					WithDetail("coin_address", addr)
			}
			return journaled, nil
		}
		log.Debug().Err(err).Msg("no journaled mint")
	}

	if supplied == nil {
		s.deps.Metrics.Reconciled("missing")
		return nil, apperrors.NewNotFoundError("pending mint", addr)
	}
	wallet, err := validation.NormalizeWallet(requester)
	if err != nil {
		s.deps.Metrics.Reconciled("rejected")
		return nil, apperrors.NewForbiddenError("a wallet address is required to reconcile an unjournaled coin")
	}
	creator, err := validation.NormalizeWallet(supplied.CreatorWallet)
	if err != nil || creator != wallet {
		s.deps.Metrics.Reconciled("rejected")
		return nil, apperrors.NewForbiddenError("only the creator can reconcile this coin")
	}

	r := *supplied
	r.ID = ""
	r.CreatedAt = time.Time{}
	r.UpdatedAt = time.Time{}
	return &r, nil
}

// samePending reports whether a supplied record describes the journaled mint.
func samePending(addr string, journaled, supplied *coin.Record) bool {
	if supplied.CoinAddress != "" {
		got, err := validation.NormalizeWallet(supplied.CoinAddress)
		if err != nil || got != addr {
			return false
		}
	}
	creator, err := validation.NormalizeWallet(supplied.CreatorWallet)
	if err != nil || creator != journaled.CreatorWallet {
		return false
	}
	return supplied.MetadataURI == journaled.MetadataURI &&
		supplied.Name == journaled.Name &&
		supplied.Symbol == journaled.Symbol &&
		supplied.TxHash == journaled.TxHash
}

func (s *Service) checkPending(addr string, r *coin.Record) error {
	if r.CoinAddress == "" {
		r.CoinAddress = addr
	}
	got, err := validation.NormalizeWallet(r.CoinAddress)
	if err != nil || got != addr {
		return apperrors.NewInvalidInputError("coin_address", "record does not match the reconciled address")
	}
	r.CoinAddress = got
	creator, err := validation.NormalizeWallet(r.CreatorWallet)
	if err != nil {
		return apperrors.NewInvalidInputError("creator_wallet", err.Error())
	}
	r.CreatorWallet = creator
	if strings.TrimSpace(r.MetadataURI) == "" {
		return apperrors.NewInvalidInputError("metadata_uri", "is required")
	}
	if r.Name == "" {
		r.Name = DefaultTokenName
	}
	if r.Symbol == "" {
		r.Symbol = DefaultTokenSymbol
	}
	return nil
}

// Scrape extracts a page without creating anything.
func (s *Service) Scrape(ctx context.Context, sourceURL string) (*content.Scraped, error) {
	u, err := validation.ValidateSourceURL(sourceURL)
	if err != nil {
		return nil, apperrors.NewInvalidInputError("url", err.Error())
	}
	scraped, err := s.deps.Extractor.Extract(ctx, u.String())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeExtractionFailed, "Could not read the blog post").
			WithDetail("source_url", u.String())
	}
	return scraped, nil
}

// PublishMetadata builds and pins the document for already scraped content.
func (s *Service) PublishMetadata(ctx context.Context, scraped *content.Scraped) (*metadata.Published, error) {
	if scraped == nil {
		return nil, apperrors.NewInvalidInputError("content", "is required")
	}
	if _, err := validation.ValidateSourceURL(scraped.SourceURL); err != nil {
		return nil, apperrors.NewInvalidInputError("source_url", err.Error())
	}
	doc := metadata.BuildDocument(scraped, DeriveTokenName(scraped.Title))
	pub, err := s.deps.Publisher.Publish(ctx, doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMetadataPublishFailed, "Could not publish coin metadata")
	}
	return pub, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]coin.Record, error) {
	limit, offset = coin.NormalizePage(limit, offset)
	items, err := s.deps.Repo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list coins", err)
	}
	return items, nil
}

func (s *Service) ListByCreator(ctx context.Context, wallet string, limit, offset int) ([]coin.Record, error) {
	w, err := validation.NormalizeWallet(wallet)
	if err != nil {
		return nil, apperrors.NewValidationError("wallet", err.Error())
	}
	limit, offset = coin.NormalizePage(limit, offset)
	items, err := s.deps.Repo.ListByCreator(ctx, w, limit, offset)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list coins by creator", err)
	}
	return items, nil
}

// GetByAddress reads through the cache when one is configured.
func (s *Service) GetByAddress(ctx context.Context, address string) (*coin.Record, error) {
	addr, err := validation.NormalizeWallet(address)
	if err != nil {
		return nil, apperrors.NewValidationError("address", err.Error())
	}
	if s.deps.Cache != nil {
		if r, err := s.deps.Cache.GetByAddress(ctx, addr); err == nil {
			return r, nil
		}
	}
	r, err := s.deps.Repo.GetByAddress(ctx, addr)
	if err != nil {
		if errors.Is(err, coin.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("coin", addr)
		}
		return nil, apperrors.NewDatabaseError("get coin by address", err)
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, r); err != nil {
			s.log.Warn().Err(err).Str("coin_address", addr).Msg("failed to cache coin")
		}
	}
	return r, nil
}

// Delete removes a record owned by requester.
func (s *Service) Delete(ctx context.Context, id, requester string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError("id", "is required")
	}
	wallet, err := validation.NormalizeWallet(requester)
	if err != nil {
		return apperrors.NewValidationError("wallet", err.Error())
	}
	r, err := s.deps.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, coin.ErrNotFound) {
			return apperrors.NewNotFoundError("coin", id)
		}
		return apperrors.NewDatabaseError("get coin", err)
	}
	if r.CreatorWallet != wallet {
		return apperrors.NewForbiddenError("only the creator can delete this coin")
	}
	if err := s.deps.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, coin.ErrNotFound) {
			return apperrors.NewNotFoundError("coin", id)
		}
		return apperrors.NewDatabaseError("delete coin", err)
	}
	s.invalidate(ctx, s.log, r.CoinAddress)
	s.log.Info().Str("id", id).Str("coin_address", r.CoinAddress).Msg("coin deleted")
	return nil
}

func (s *Service) Stats(ctx context.Context) (coin.Stats, error) {
	if s.deps.Cache != nil {
		if st, err := s.deps.Cache.GetStats(ctx); err == nil {
			return st, nil
		}
	}
	st, err := s.deps.Repo.Stats(ctx)
	if err != nil {
		return coin.Stats{}, apperrors.NewDatabaseError("coin stats", err)
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.SetStats(ctx, st); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache stats")
		}
	}
	return st, nil
}

func (s *Service) UserStats(ctx context.Context, wallet string) (coin.UserStats, error) {
	w, err := validation.NormalizeWallet(wallet)
	if err != nil {
		return coin.UserStats{}, apperrors.NewValidationError("wallet", err.Error())
	}
	n, err := s.deps.Repo.CountByCreator(ctx, w)
	if err != nil {
		return coin.UserStats{}, apperrors.NewDatabaseError("count coins by creator", err)
	}
	return coin.UserStats{WalletAddress: w, UserCoins: n}, nil
}

// stage runs fn as one pipeline step, logging and timing it.
func (s *Service) stage(ctx context.Context, log zerolog.Logger, st Stage, fn func(context.Context) error) error {
	log.Debug().Str("stage", string(st)).Msg("pipeline stage")
	start := time.Now()
	err := fn(ctx)
	s.deps.Metrics.ObserveStage(string(st), time.Since(start))
	if err != nil {
		s.deps.Metrics.StageFailed(string(st))
	}
	return err
}

func (s *Service) fail(log zerolog.Logger, st Stage, err *apperrors.AppError) error {
	s.deps.Metrics.RunFinished(OutcomeFailed)
	ev := log.Warn()
	if st != StageIdle {
		ev = log.Error()
	}
	ev.Err(err).Str("stage", string(st)).Str("code", string(err.Code)).Msg("coin creation failed")
	return err
}

func (s *Service) journal(ctx context.Context, log zerolog.Logger, r *coin.Record) {
	if s.deps.Journal == nil {
		return
	}
	// The request context may already be done; the journal write still matters.
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.deps.Journal.Save(jctx, r); err != nil {
		log.Error().Err(err).Msg("failed to journal pending mint")
	}
}

func (s *Service) clearJournal(ctx context.Context, log zerolog.Logger, addr string) {
	if s.deps.Journal == nil {
		return
	}
	if err := s.deps.Journal.Delete(ctx, addr); err != nil {
		log.Warn().Err(err).Msg("failed to clear pending mint")
	}
}

func (s *Service) invalidate(ctx context.Context, log zerolog.Logger, addr string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, addr); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate coin cache")
	}
}

func (s *Service) notify(log zerolog.Logger, r *coin.Record) {
	if s.deps.Notifier == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("notifier panicked")
		}
	}()
	s.deps.Notifier.NotifyCreated(r)
}
