package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coinit-backend/internal/common/logger"
	"coinit-backend/internal/observability"
	"coinit-backend/internal/platform/redis"
	"coinit-backend/internal/service/notifications"
)

const (
	DefaultConsumerGroup = "coinit_notifiers"
	DefaultConsumerName  = "notifier_1"
)

// NotificationWorker delivers announcements queued on the notification stream.
// An entry is acked only after a successful send. Failed entries stay pending
// and are retried on start and then every retryEvery, together with entries
// left idle by other consumers for at least claimAfter.
type NotificationWorker struct {
	rdb        *redis.Client
	sender     notifications.Sender
	metrics    *observability.Metrics
	group      string
	consumer   string
	batch      int64
	block      time.Duration
	timeout    time.Duration
	retryEvery time.Duration
	claimAfter time.Duration
	log        zerolog.Logger
}

func NewNotificationWorker(rdb *redis.Client, sender notifications.Sender, m *observability.Metrics, consumer string) *NotificationWorker {
	if consumer == "" {
		consumer = DefaultConsumerName
	}
	return &NotificationWorker{
		rdb:        rdb,
		sender:     sender,
		metrics:    m,
		group:      DefaultConsumerGroup,
		consumer:   consumer,
		batch:      10,
		block:      5 * time.Second,
		timeout:    10 * time.Second,
		retryEvery: 30 * time.Second,
		claimAfter: time.Minute,
		log:        logger.With("notification_worker"),
	}
}

// Start consumes the stream until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.ensureGroup(ctx)
	w.log.Info().Str("group", w.group).Str("consumer", w.consumer).Msg("starting notification worker")

	w.retryPending(ctx)

	ticker := time.NewTicker(w.retryEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping notification worker")
			return
		case <-ticker.C:
			w.retryPending(ctx)
		default:
			w.poll(ctx)
		}
	}
}

func (w *NotificationWorker) ensureGroup(ctx context.Context) {
	err := w.rdb.XGroupCreateMkStream(ctx, notifications.StreamKey, w.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		w.log.Error().Err(err).Msg("error creating consumer group")
	}
}

// poll reads new entries.
func (w *NotificationWorker) poll(ctx context.Context) {
	entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
		Group:    w.group,
		Consumer: w.consumer,
		Streams:  []string{notifications.StreamKey, ">"},
		Count:    w.batch,
		Block:    w.block,
	}).Result()
	if err != nil {
		if !errors.Is(err, go_redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("error reading from stream")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
		return
	}
	for _, stream := range entries {
		w.handle(ctx, stream.Messages)
	}
}

// retryPending walks this consumer's whole pending list once, then claims
// entries other consumers left idle.
func (w *NotificationWorker) retryPending(ctx context.Context) {
	last := "0"
	for ctx.Err() == nil {
		entries, err := w.rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
			Group:    w.group,
			Consumer: w.consumer,
			Streams:  []string{notifications.StreamKey, last},
			Count:    w.batch,
			Block:    -1,
		}).Result()
		if err != nil {
			if !errors.Is(err, go_redis.Nil) && ctx.Err() == nil {
				w.log.Error().Err(err).Msg("error reading pending entries")
			}
			return
		}
		if len(entries) == 0 || len(entries[0].Messages) == 0 {
			break
		}
		msgs := entries[0].Messages
		w.handle(ctx, msgs)
		last = msgs[len(msgs)-1].ID
	}
	w.claimIdle(ctx)
}

func (w *NotificationWorker) claimIdle(ctx context.Context) {
	start := "0-0"
	for ctx.Err() == nil {
		msgs, next, err := w.rdb.XAutoClaim(ctx, &go_redis.XAutoClaimArgs{
			Stream:   notifications.StreamKey,
			Group:    w.group,
			Consumer: w.consumer,
			MinIdle:  w.claimAfter,
			Start:    start,
			Count:    w.batch,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Error().Err(err).Msg("error claiming idle entries")
			}
			return
		}
		if len(msgs) > 0 {
			w.log.Info().Int("count", len(msgs)).Msg("claimed idle notifications")
		}
		w.handle(ctx, msgs)
		if next == "" || next == "0-0" {
			return
		}
		start = next
	}
}

func (w *NotificationWorker) handle(ctx context.Context, msgs []go_redis.XMessage) {
	for _, msg := range msgs {
		if !w.processMessage(ctx, msg.Values) {
			continue
		}
		if err := w.rdb.XAck(ctx, notifications.StreamKey, w.group, msg.ID).Err(); err != nil {
			w.log.Warn().Err(err).Str("id", msg.ID).Msg("failed to ack notification")
		}
	}
}

// processMessage reports whether the entry is finished with.
func (w *NotificationWorker) processMessage(ctx context.Context, values map[string]interface{}) bool {
	text, ok := values["text"].(string)
	if !ok || text == "" {
		w.log.Warn().Interface("values", values).Msg("dropping malformed notification")
		return true
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, text); err != nil {
		w.metrics.NotificationResult(notifications.ResultFailed)
		w.log.Warn().Err(err).Msg("notification failed")
		return false
	}
	w.metrics.NotificationResult(notifications.ResultSent)
	return true
}
