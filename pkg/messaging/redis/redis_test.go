package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, func() {
		client.Close()
		mr.Close()
	}
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	broker := NewRedisBroker(client, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := broker.Subscribe(ctx, messaging.ChannelCalendarInvalidate)
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, messaging.ChannelCalendarInvalidate, map[string]string{"org": "o1"}))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"org":"o1"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSubscriptionClosesWithContext(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	broker := NewRedisBroker(client, nil)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := broker.Subscribe(ctx, "x")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}

func TestAdapterDeliversToHandler(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	adapter := messaging.NewBrokerAdapter(NewRedisBroker(client, nil), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan []byte, 1)
	require.NoError(t, adapter.Subscribe(ctx, "topic", func(b []byte) error {
		got <- b
		return nil
	}))
	require.NoError(t, adapter.Publish(ctx, "topic", []byte(`{"a":1}`)))

	select {
	case b := <-got:
		assert.JSONEq(t, `{"a":1}`, string(b))
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}
