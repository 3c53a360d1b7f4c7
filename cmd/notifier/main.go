package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinit-backend/internal/common/logger"
	"coinit-backend/internal/config"
	"coinit-backend/internal/observability"
	redisplatform "coinit-backend/internal/platform/redis"
	"coinit-backend/internal/service/notifications"
	"coinit-backend/internal/service/telegram"
	"coinit-backend/internal/workers"
)

// notifier drains the coinit:notifications stream into the Telegram channel.
// It runs alongside the API when NOTIFY_MODE=stream.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("coinit-notifier", false)
		logger.Fatal().Err(err).Msg("config load")
	}
	logger.Init(cfg.ServiceName+"-notifier", cfg.Debug)

	if !cfg.TelegramEnabled() {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID are required")
	}

	rdb, err := redisplatform.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis open")
	}
	defer rdb.Close()

	metrics := observability.NewMetrics("coinit")
	tgc := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken, cfg.Notify.Timeout)
	sender := notifications.NewTelegramSender(tgc, cfg.Telegram.ChannelID)

	hostname, _ := os.Hostname()
	worker := workers.NewNotificationWorker(rdb, sender, metrics, hostname)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()

	worker.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info().Msg("Notifier exited")
}
