package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "coinit-backend/docs"
	rcache "coinit-backend/internal/cache/redis"
	"coinit-backend/internal/common/logger"
	"coinit-backend/internal/config"
	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/domain/user"
	apphttp "coinit-backend/internal/http"
	"coinit-backend/internal/migrations"
	"coinit-backend/internal/observability"
	pgplatform "coinit-backend/internal/platform/postgres"
	redisplatform "coinit-backend/internal/platform/redis"
	sqliteplatform "coinit-backend/internal/platform/sqlite"
	pgrepo "coinit-backend/internal/repository/postgres"
	sqliterepo "coinit-backend/internal/repository/sqlite"
	"coinit-backend/internal/service/coins"
	"coinit-backend/internal/service/extractor"
	"coinit-backend/internal/service/metadata"
	"coinit-backend/internal/service/minter"
	"coinit-backend/internal/service/notifications"
	"coinit-backend/internal/service/telegram"
	usersvc "coinit-backend/internal/service/user"
)

// @title           CoinIt API
// @version         1.0
// @description     Turns blog posts into tradeable creator coins on Base.

// @host      localhost:8080
// @BasePath  /api/v1

// @tag.name coins
// @tag.description Coin creation, reconciliation and listing

// @tag.name creators
// @tag.description Per-creator views

// @tag.name content
// @tag.description Blog post extraction and metadata publishing

// @tag.name users
// @tag.description Wallet profiles

type store struct {
	coins  coin.Repository
	users  user.Repository
	check  apphttp.HealthCheck
	closer func()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("coinit-backend", false)
		logger.Fatal().Err(err).Msg("config load")
	}
	logger.Init(cfg.ServiceName, cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Str("db_driver", cfg.Database.Driver).Msg("Starting CoinIt backend")

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open store")
	}
	defer st.closer()

	metrics := observability.NewMetrics("coinit")
	checks := []apphttp.HealthCheck{st.check}

	var rdb *redisplatform.Client
	if cfg.Redis.Enabled {
		rdb, err = redisplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis open")
		}
		defer rdb.Close()
		checks = append(checks, apphttp.HealthCheck{Name: "redis", Check: rdb.HealthCheck})
	}

	pinner := metadata.NewIPFSPinner(cfg.IPFS.APIAddr, cfg.IPFS.Timeout)
	checks = append(checks, apphttp.HealthCheck{Name: "ipfs", Check: pinner.HealthCheck})

	dispatcher, drain := buildDispatcher(cfg, rdb, metrics)

	deps := coins.Deps{
		Extractor: extractor.New(nil, extractor.Options{
			Timeout:      cfg.Extractor.Timeout,
			MaxBodyBytes: cfg.Extractor.MaxBodyBytes,
			UserAgent:    cfg.Extractor.UserAgent,
		}),
		Publisher: metadata.NewPublisher(pinner, cfg.IPFS.GatewayURL),
		Minter:    minter.NewClient(cfg.Minter.BaseURL, cfg.Minter.ChainID, cfg.Minter.Currency, cfg.Minter.Timeout),
		Repo:      st.coins,
		Notifier: notifications.NewService(dispatcher, notifications.Explorers{
			Zora:        cfg.Explorer.ZoraURL,
			BaseScan:    cfg.Explorer.BaseScanURL,
			DexScreener: cfg.Explorer.DexScreenerURL,
		}),
		Metrics: metrics,
	}
	var profileCache usersvc.ProfileCache
	if rdb != nil {
		deps.Cache = rcache.NewCoinCache(rdb, cfg.Cache.CoinTTL, cfg.Cache.StatsTTL)
		deps.Journal = rcache.NewPendingMints(rdb, rcache.DefaultPendingTTL)
		profileCache = rcache.NewUserCache(rdb, cfg.Cache.CoinTTL)
	}

	coinSvc := coins.NewService(deps, coins.Options{PlatformReferrer: cfg.Minter.PlatformReferrer})
	userSvc := usersvc.NewService(st.users, profileCache)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		ServiceName:    cfg.ServiceName,
		Debug:          cfg.Debug,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Coins:          coinSvc,
		Users:          userSvc,
		Metrics:        metrics.Handler(),
		Checks:         checks,
	})

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Coin creation waits on the wallet signature and the chain.
		WriteTimeout: cfg.Minter.Timeout + cfg.Extractor.Timeout + cfg.IPFS.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := drain(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Pending notifications dropped")
	}

	logger.Info().Msg("Server exited")
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		db, err := sqliteplatform.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("sqlite open: %w", err)
		}
		if err := migrations.RunSQLite(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			coins:  sqliterepo.NewCoinRepository(db),
			users:  sqliterepo.NewUserRepository(db),
			check:  apphttp.HealthCheck{Name: "sqlite", Check: db.PingContext},
			closer: func() { _ = db.Close() },
		}, nil
	default:
		pool, err := pgplatform.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := migrations.RunPostgres(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &store{
			coins:  pgrepo.NewCoinRepository(pool),
			users:  pgrepo.NewUserRepository(pool),
			check:  apphttp.HealthCheck{Name: "postgres", Check: pool.HealthCheck},
			closer: pool.Close,
		}, nil
	}
}

// buildDispatcher picks the announcement path for NOTIFY_MODE. The returned
// drain func waits for in-flight sends on shutdown.
func buildDispatcher(cfg *config.Config, rdb *redisplatform.Client, m *observability.Metrics) (notifications.Dispatcher, func(context.Context) error) {
	noDrain := func(context.Context) error { return nil }

	switch cfg.Notify.Mode {
	case config.NotifyOff:
		return notifications.NopDispatcher{}, noDrain
	case config.NotifyStream:
		d := notifications.NewStreamDispatcher(rdb, cfg.Notify.Timeout, m)
		return d, d.Wait
	}

	if !cfg.TelegramEnabled() {
		logger.Warn().Msg("Telegram is not configured; coin announcements are disabled")
		return notifications.NopDispatcher{}, noDrain
	}
	tgc := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Notify.Timeout)
	d := notifications.NewAsyncDispatcher(notifications.NewTelegramSender(tgc, cfg.Telegram.ChannelID), cfg.Notify.Timeout, m)
	return d, d.Wait
}
