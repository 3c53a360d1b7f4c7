package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"coinit-backend/internal/common/logger"
	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/observability"
	redisp "coinit-backend/internal/platform/redis"
	tg "coinit-backend/internal/service/telegram"
)

// StreamKey is the Redis stream carrying queued announcements.
const StreamKey = "coinit:notifications"

const (
	ResultSent    = "sent"
	ResultFailed  = "failed"
	ResultQueued  = "queued"
	ResultSkipped = "skipped"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Dispatcher hands a message off for delivery. Results never reach the caller.
type Dispatcher interface {
	Dispatch(text string)
}

// TelegramSender posts to a single channel.
type TelegramSender struct {
	tg        *tg.Client
	channelID string
}

func NewTelegramSender(client *tg.Client, channelID string) *TelegramSender {
	return &TelegramSender{tg: client, channelID: channelID}
}

func (s *TelegramSender) Send(ctx context.Context, text string) error {
	if s == nil || s.tg == nil || s.channelID == "" {
		return fmt.Errorf("telegram sender not configured")
	}
	return s.tg.SendMessage(ctx, s.channelID, text, "Markdown", false)
}

// NopDispatcher drops every message.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(string) {}

// AsyncDispatcher sends each message from its own goroutine.
type AsyncDispatcher struct {
	sender  Sender
	timeout time.Duration
	metrics *observability.Metrics
	// delivered is the result label counted on success.
	delivered string
	log       zerolog.Logger
	wg        sync.WaitGroup
}

func NewAsyncDispatcher(sender Sender, timeout time.Duration, m *observability.Metrics) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncDispatcher{
		sender:    sender,
		timeout:   timeout,
		metrics:   m,
		delivered: ResultSent,
		log:       logger.With("notifications"),
	}
}

func (d *AsyncDispatcher) Dispatch(text string) {
	if d == nil || d.sender == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.metrics.NotificationResult(ResultFailed)
				d.log.Error().Interface("panic", r).Msg("notification send panicked")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, text); err != nil {
			d.metrics.NotificationResult(ResultFailed)
			d.log.Warn().Err(err).Msg("notification failed")
			return
		}
		d.metrics.NotificationResult(d.delivered)
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (d *AsyncDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StreamSender queues messages on a Redis stream for the notifier worker.
type StreamSender struct {
	rdb *redisp.Client
}

func NewStreamSender(rdb *redisp.Client) *StreamSender {
	return &StreamSender{rdb: rdb}
}

func (s *StreamSender) Send(ctx context.Context, text string) error {
	if s == nil || s.rdb == nil {
		return fmt.Errorf("notification stream not configured")
	}
	return s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		Values: map[string]interface{}{
			"type": "new_coin",
			"text": text,
		},
	}).Err()
}

// NewStreamDispatcher queues messages in the background. Queued entries are
// counted as ResultQueued; delivery is left to the worker.
func NewStreamDispatcher(rdb *redisp.Client, timeout time.Duration, m *observability.Metrics) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := NewAsyncDispatcher(NewStreamSender(rdb), timeout, m)
	d.delivered = ResultQueued
	return d
}

// Service renders coin events and hands them to a Dispatcher.
type Service struct {
	dispatcher Dispatcher
	explorers  Explorers
}

func NewService(d Dispatcher, ex Explorers) *Service {
	if d == nil {
		d = NopDispatcher{}
	}
	return &Service{dispatcher: d, explorers: ex}
}

// NotifyCreated announces a newly persisted coin.
func (s *Service) NotifyCreated(r *coin.Record) {
	if s == nil || r == nil {
		return
	}
	s.dispatcher.Dispatch(FormatNewCoinMessage(MessageFromRecord(r, s.explorers)))
}
