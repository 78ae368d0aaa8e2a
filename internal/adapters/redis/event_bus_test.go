package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamnotify/channel-resolver/internal/domain/model"
	"github.com/streamnotify/channel-resolver/internal/testutil"
)

func newTestBus(t *testing.T) *EventBus {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	bus, err := NewEventBus(EventBusOptions{Client: client})
	require.NoError(t, err)
	return bus
}

func TestNewEventBusRequiresClient(t *testing.T) {
	_, err := NewEventBus(EventBusOptions{})
	require.Error(t, err)
}

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch, err := bus.Subscribe(ctx, model.TopicJobSubmitted)
	require.NoError(t, err)

	evt := model.JobSubmitted{JobID: "job_1", Channel: "@someone", Email: "user@example.com"}
	require.NoError(t, bus.Publish(ctx, model.TopicJobSubmitted, evt))

	select {
	case raw := <-ch:
		var got model.JobSubmitted
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, evt, got)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestEventBusSubscribeClosesOnCancel(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, model.TopicChannelResolved)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after cancellation")
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close after cancellation")
	}
}

func TestEventBusValidatesTopic(t *testing.T) {
	bus := newTestBus(t)
	ctx := context.Background()

	require.Error(t, bus.Publish(ctx, "", struct{}{}))

	_, err := bus.Subscribe(ctx, "")
	require.Error(t, err)
}

func TestEventBusTopicsAreIsolated(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resolved, err := bus.Subscribe(ctx, model.TopicChannelResolved)
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, model.TopicChannelResolutionFailed, model.ChannelResolutionFailed{
		JobID: "job_1",
		Email: "user@example.com",
		Error: "channel not found",
	}))

	select {
	case raw := <-resolved:
		t.Fatalf("unexpected delivery on resolved topic: %s", raw)
	case <-time.After(200 * time.Millisecond):
		// No cross-topic leakage.
	}
}
