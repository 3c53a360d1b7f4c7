package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	go_redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"coinit-backend/internal/platform/redis"
	"coinit-backend/internal/service/notifications"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSender) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func TestProcessMessage(t *testing.T) {
	ctx := context.Background()

	s := &fakeSender{}
	w := NewNotificationWorker(nil, s, nil, "")
	assert.True(t, w.processMessage(ctx, map[string]interface{}{"text": "hi"}))
	assert.True(t, w.processMessage(ctx, map[string]interface{}{"type": "new_coin"}))
	assert.Equal(t, []string{"hi"}, s.sent())

	failing := NewNotificationWorker(nil, &fakeSender{err: errors.New("down")}, nil, "")
	assert.False(t, failing.processMessage(ctx, map[string]interface{}{"text": "hi"}))
}

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	client := redis.Wrap(go_redis.NewClient(&go_redis.Options{Addr: endpoint}))

	t.Cleanup(func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	})
	return client
}

func TestWorkerDeliversQueuedNotifications(t *testing.T) {
	rdb := setupRedis(t)

	d := notifications.NewStreamDispatcher(rdb, time.Second, nil)
	d.Dispatch("first")
	require.NoError(t, d.Wait(context.Background()))
	d.Dispatch("second")
	require.NoError(t, d.Wait(context.Background()))

	sender := &fakeSender{}
	w := NewNotificationWorker(rdb, sender, nil, "test")
	w.block = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return len(sender.sent()) == 2 }, 10*time.Second, 50*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{"first", "second"}, sender.sent())

	pending, err := rdb.XPending(context.Background(), notifications.StreamKey, DefaultConsumerGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func queue(t *testing.T, rdb *redis.Client, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := rdb.XAdd(context.Background(), &go_redis.XAddArgs{
			Stream: notifications.StreamKey,
			Values: map[string]interface{}{"type": "new_coin", "text": fmt.Sprintf("coin %02d", i)},
		}).Err()
		require.NoError(t, err)
	}
}

func pendingCount(t *testing.T, rdb *redis.Client) int64 {
	t.Helper()
	p, err := rdb.XPending(context.Background(), notifications.StreamKey, DefaultConsumerGroup).Result()
	require.NoError(t, err)
	return p.Count
}

func TestWorkerRetriesWholePendingList(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)
	queue(t, rdb, 25)

	sender := &fakeSender{}
	sender.fail(errors.New("telegram down"))
	w := NewNotificationWorker(rdb, sender, nil, "test")
	w.block = 50 * time.Millisecond
	w.ensureGroup(ctx)

	for i := 0; i < 3; i++ {
		w.poll(ctx)
	}
	assert.Equal(t, int64(25), pendingCount(t, rdb))

	sender.fail(nil)
	w.retryPending(ctx)

	assert.Len(t, sender.sent(), 25)
	assert.Zero(t, pendingCount(t, rdb))
}

func TestWorkerClaimsEntriesIdleOnOtherConsumers(t *testing.T) {
	ctx := context.Background()
	rdb := setupRedis(t)
	queue(t, rdb, 3)

	w := NewNotificationWorker(rdb, &fakeSender{}, nil, "survivor")
	w.ensureGroup(ctx)

	_, err := rdb.XReadGroup(ctx, &go_redis.XReadGroupArgs{
		Group:    DefaultConsumerGroup,
		Consumer: "crashed",
		Streams:  []string{notifications.StreamKey, ">"},
		Count:    10,
		Block:    -1,
	}).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), pendingCount(t, rdb))

	w.claimAfter = 10 * time.Millisecond
	time.Sleep(50 * time.Millisecond)
	w.retryPending(ctx)

	assert.Equal(t, []string{"coin 00", "coin 01", "coin 02"}, w.sender.(*fakeSender).sent())
	assert.Zero(t, pendingCount(t, rdb))
}
