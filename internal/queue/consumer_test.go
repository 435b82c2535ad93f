package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStream = "chaplog:test-maintenance"

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
	fail bool
}

func (h *recordingHandler) Handle(_ context.Context, msg redis.XMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, msg.Values["type"].(string))
	if h.fail {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func newTestConsumer(t *testing.T, handler MessageHandler) (*Consumer, *Producer, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	consumer := NewConsumer(client, Options{
		Stream:        testStream,
		Group:         "workers",
		Consumer:      "worker-1",
		ClaimInterval: time.Millisecond,
		Block:         -1,
		MaxDeliveries: 3,
	}, zerolog.Nop(), handler)
	require.NoError(t, consumer.EnsureGroup(context.Background()))
	return consumer, NewProducer(client, testStream, 0), client
}

func TestEnsureGroupIsIdempotent(t *testing.T) {
	consumer, _, _ := newTestConsumer(t, &recordingHandler{})
	assert.NoError(t, consumer.EnsureGroup(context.Background()))
}

func TestReadAcknowledgesHandledMessages(t *testing.T) {
	handler := &recordingHandler{}
	consumer, producer, client := newTestConsumer(t, handler)
	ctx := context.Background()

	_, err := producer.Enqueue(ctx, map[string]any{"type": "refresh_token_cleanup"})
	require.NoError(t, err)

	handled, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"refresh_token_cleanup"}, handler.seen)

	pending, err := client.XPending(ctx, testStream, "workers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	handled, err = consumer.read(ctx)
	require.NoError(t, err)
	assert.Zero(t, handled)
}

func TestFailedMessagesAreReclaimed(t *testing.T) {
	handler := &recordingHandler{fail: true}
	consumer, producer, client := newTestConsumer(t, handler)
	ctx := context.Background()

	_, err := producer.Enqueue(ctx, map[string]any{"type": "refresh_token_cleanup"})
	require.NoError(t, err)

	handled, err := consumer.read(ctx)
	require.NoError(t, err)
	assert.Zero(t, handled)

	pending, err := client.XPending(ctx, testStream, "workers").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count)

	handler.mu.Lock()
	handler.fail = false
	handler.mu.Unlock()
	time.Sleep(20 * time.Millisecond)

	handled, err = consumer.claimStalled(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, 2, handler.count())

	pending, err = client.XPending(ctx, testStream, "workers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestStartStopsOnCancel(t *testing.T) {
	handler := &recordingHandler{}
	consumer, producer, _ := newTestConsumer(t, handler)
	consumer.opts.Block = 10 * time.Millisecond

	_, err := producer.Enqueue(context.Background(), map[string]any{"type": "refresh_token_cleanup"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Start(ctx) }()

	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
