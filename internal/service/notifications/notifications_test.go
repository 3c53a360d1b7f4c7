package notifications

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coinit-backend/internal/domain/coin"
	"coinit-backend/internal/observability"
	redisp "coinit-backend/internal/platform/redis"
)

const (
	testCreator = "0x52908400098527886E0F7030069857D2E4169EE7"
	testCoin    = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
)

func testRecord() *coin.Record {
	return &coin.Record{
		Name:          "Hello, World! 2024",
		Symbol:        "HELLOWOR",
		CreatorWallet: testCreator,
		CoinAddress:   testCoin,
		CreatedAt:     time.Date(2024, 3, 5, 14, 7, 0, 0, time.FixedZone("CET", 3600)),
		Metadata:      coin.Snapshot{Description: "A coin representing the blog post: Hello"},
	}
}

func TestFormatNewCoinMessage(t *testing.T) {
	text := FormatNewCoinMessage(MessageFromRecord(testRecord(), DefaultExplorers))

	want := strings.Join([]string{
		"🆕🪙 NEW CREATOR COIN CREATED",
		"",
		"📛 Hello, World! 2024 (HELLOWOR)",
		"💰 Market Cap: N/A",
		"📊 Total Supply: N/A",
		"👤 [0x5290...9EE7](https://zora.co/" + testCreator + ")",
		"📅 Created: 2024-03-05 13:07 UTC",
		"📄 Contract: " + testCoin,
		"📝 A coin representing the blog post: Hello",
		"",
		"🔗 View on [Zora](https://zora.co/coin/base:" + testCoin + ") | [BaseScan](https://basescan.org/token/" + testCoin + ") | [DexScreener](https://dexscreener.com/base/" + testCoin + ")",
	}, "\n")
	assert.Equal(t, want, text)
}

func TestFormatNewCoinMessageOmitsEmptyDescription(t *testing.T) {
	r := testRecord()
	r.Metadata.Description = "  "
	text := FormatNewCoinMessage(MessageFromRecord(r, DefaultExplorers))
	assert.NotContains(t, text, "📝")
}

func TestFormatNewCoinMessageEscapesMarkdown(t *testing.T) {
	r := testRecord()
	r.Name = "my_post *bold* [x]"
	text := FormatNewCoinMessage(MessageFromRecord(r, DefaultExplorers))
	assert.Contains(t, text, `📛 my\_post \*bold\* \[x] (HELLOWOR)`)
}

func TestExplorersTrimTrailingSlash(t *testing.T) {
	ex := Explorers{Zora: "https://zora.test/", BaseScan: "https://scan.test/", DexScreener: "https://dex.test/"}
	assert.Equal(t, "https://zora.test/coin/base:0xabc", ex.CoinURL("0xabc"))
	assert.Equal(t, "https://scan.test/token/0xabc", ex.BaseScanURL("0xabc"))
	assert.Equal(t, "https://dex.test/base/0xabc", ex.DexScreenerURL("0xabc"))
}

type recordingSender struct {
	mu    sync.Mutex
	texts []string
	err   error
	panic bool
}

func (s *recordingSender) Send(_ context.Context, text string) error {
	if s.panic {
		panic("boom")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return s.err
}

func TestAsyncDispatcherSends(t *testing.T) {
	m := observability.NewMetrics("test")
	sender := &recordingSender{}
	d := NewAsyncDispatcher(sender, time.Second, m)

	d.Dispatch("one")
	d.Dispatch("two")
	require.NoError(t, d.Wait(context.Background()))

	assert.ElementsMatch(t, []string{"one", "two"}, sender.texts)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultSent)))
}

func TestAsyncDispatcherSwallowsFailures(t *testing.T) {
	m := observability.NewMetrics("test")
	d := NewAsyncDispatcher(&recordingSender{err: errors.New("telegram down")}, time.Second, m)

	d.Dispatch("x")
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultFailed)))
}

func TestAsyncDispatcherRecoversPanics(t *testing.T) {
	m := observability.NewMetrics("test")
	d := NewAsyncDispatcher(&recordingSender{panic: true}, time.Second, m)

	d.Dispatch("x")
	require.NoError(t, d.Wait(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultFailed)))
}

type blockingSender struct{ release chan struct{} }

func (s *blockingSender) Send(ctx context.Context, _ string) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestAsyncDispatcherWaitHonoursContext(t *testing.T) {
	s := &blockingSender{release: make(chan struct{})}
	d := NewAsyncDispatcher(s, time.Minute, nil)
	d.Dispatch("x")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(s.release)
	require.NoError(t, d.Wait(context.Background()))
}

// silentRedis accepts connections and never answers.
func silentRedis(t *testing.T) *redisp.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() { _, _ = io.Copy(io.Discard, conn) }()
		}
	}()

	rdb := redisp.Wrap(goredis.NewClient(&goredis.Options{
		Addr:                  ln.Addr().String(),
		MaxRetries:            -1,
		DialTimeout:           time.Second,
		ReadTimeout:           200 * time.Millisecond,
		WriteTimeout:          200 * time.Millisecond,
		ContextTimeoutEnabled: true,
	}))
	t.Cleanup(func() {
		_ = rdb.Close()
		_ = ln.Close()
	})
	return rdb
}

func TestStreamDispatcherDoesNotBlockCaller(t *testing.T) {
	m := observability.NewMetrics("test")
	d := NewStreamDispatcher(silentRedis(t), 200*time.Millisecond, m)

	start := time.Now()
	d.Dispatch("hello")
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultFailed)))
	assert.Zero(t, testutil.ToFloat64(m.Notifications.WithLabelValues(ResultQueued)))
}

func TestStreamSenderRequiresClient(t *testing.T) {
	assert.Error(t, NewStreamSender(nil).Send(context.Background(), "x"))
}

type captureDispatcher struct{ texts []string }

func (c *captureDispatcher) Dispatch(text string) { c.texts = append(c.texts, text) }

func TestServiceNotifyCreated(t *testing.T) {
	cd := &captureDispatcher{}
	svc := NewService(cd, DefaultExplorers)

	svc.NotifyCreated(testRecord())
	svc.NotifyCreated(nil)

	require.Len(t, cd.texts, 1)
	assert.True(t, strings.HasPrefix(cd.texts[0], newCoinHeader))
}

func TestNilServiceAndNopDispatcher(t *testing.T) {
	var svc *Service
	assert.NotPanics(t, func() { svc.NotifyCreated(testRecord()) })
	assert.NotPanics(t, func() { NewService(nil, DefaultExplorers).NotifyCreated(testRecord()) })
}
