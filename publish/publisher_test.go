package publish_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/curve/clock"
	"example.com/curve/curveerr"
	"example.com/curve/envelope"
	"example.com/curve/eventctx"
	"example.com/curve/idgen"
	"example.com/curve/publish"
	"example.com/curve/serialize"
)

type orderPlaced struct {
	OrderID string
}

func (orderPlaced) EventTypeTag() string { return "order.placed" }

func newFactory(t *testing.T, workerID int64) *envelope.Factory {
	t.Helper()
	gen, err := idgen.New(workerID)
	require.NoError(t, err)
	return envelope.NewFactory(gen, clock.System{})
}

func testMetadata() eventctx.Metadata {
	return eventctx.NewMetadata(eventctx.Source{Service: "orders"}, eventctx.Actor{}, eventctx.Trace{}, eventctx.Schema{Name: "OrderPlaced", Version: 1}, nil)
}

type fakeBroker struct {
	mu       sync.Mutex
	sent     []string // topics sent to, in order
	failFunc func(topic string) error
}

func (f *fakeBroker) Send(ctx context.Context, topic, key string, value []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, topic)
	f.mu.Unlock()

	if f.failFunc != nil {
		return f.failFunc(topic)
	}
	return nil
}

func (f *fakeBroker) sentTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestPublishSyncHappyPath(t *testing.T) {
	broker := &fakeBroker{}
	cfg := publish.DefaultConfig("orders")
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
	require.NoError(t, err)
	require.Equal(t, []string{"orders"}, broker.sentTopics())
}

func TestPublishRetriesTransientFailureThenSucceeds(t *testing.T) {
	var attempts int32
	broker := &fakeBroker{failFunc: func(topic string) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return curveerr.New(curveerr.KindTransientBroker, "simulated transient failure", nil)
		}
		return nil
	}}
	cfg := publish.DefaultConfig("orders")
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 5 * time.Millisecond
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
	require.NoError(t, err)
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestPublishFallsBackToDLQAfterRetriesExhausted(t *testing.T) {
	broker := &fakeBroker{failFunc: func(topic string) error {
		if topic == "orders" {
			return curveerr.New(curveerr.KindTransientBroker, "always fails", nil)
		}
		return nil
	}}
	cfg := publish.DefaultConfig("orders")
	cfg.DLQTopic = "orders.dlq"
	cfg.MaxAttempts = 2
	cfg.InitialInterval = time.Millisecond
	cfg.MaxInterval = 2 * time.Millisecond
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
	require.NoError(t, err) // best-effort: never surfaces a transient failure

	topics := broker.sentTopics()
	require.Contains(t, topics, "orders.dlq")
}

func TestPublishFallsBackToFileBackupWhenNoDLQConfigured(t *testing.T) {
	dir := t.TempDir()
	broker := &fakeBroker{failFunc: func(topic string) error {
		return curveerr.New(curveerr.KindTransientBroker, "always fails", nil)
	}}
	cfg := publish.DefaultConfig("orders")
	cfg.MaxAttempts = 1
	cfg.BackupPath = dir
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	require.Equal(t, "order.placed", parsed["eventType"].(map[string]any)["value"])

	info, err := os.Stat(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPublishRejectsAfterShutdown(t *testing.T) {
	broker := &fakeBroker{}
	cfg := publish.DefaultConfig("orders")
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	require.NoError(t, p.Shutdown(context.Background()))

	err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
	require.ErrorIs(t, err, curveerr.ErrShuttingDown)
}

func TestPublishAsyncModeReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	broker := &fakeBroker{failFunc: func(topic string) error {
		<-release
		return nil
	}}
	cfg := publish.DefaultConfig("orders")
	cfg.AsyncMode = true
	p := publish.New(newFactory(t, 1), serialize.New(nil), broker, cfg, nil)

	done := make(chan struct{})
	go func() {
		err := publish.Publish(context.Background(), p, orderPlaced{OrderID: "O-1"}, testMetadata())
		require.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("async publish should not block on broker send")
	}
	close(release)
}
