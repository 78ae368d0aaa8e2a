package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/streamnotify/channel-resolver/internal/core"
)

// EventBus carries events over Redis pub/sub. Payloads are JSON.
//
// Pub/sub gives at-least-once delivery to live subscribers, which matches
// the bus contract the handlers are written against: they re-check record
// state before acting, so redelivery is harmless.
type EventBus struct {
	client redis.UniversalClient
	logger *slog.Logger
	buffer int
}

// EventBusOptions configure an EventBus.
type EventBusOptions struct {
	Client redis.UniversalClient // Required
	Logger *slog.Logger          // Optional
	Buffer int                   // Subscriber channel buffer, default 64
}

// NewEventBus creates a Redis pub/sub event bus.
func NewEventBus(opts EventBusOptions) (*EventBus, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 64
	}

	return &EventBus{
		client: opts.Client,
		logger: logger.With("component", "event_bus"),
		buffer: buffer,
	}, nil
}

var _ core.EventBus = (*EventBus)(nil)

// Publish marshals payload and delivers it to topic subscribers.
func (b *EventBus) Publish(ctx context.Context, topic string, payload any) error {
	if topic == "" {
		return errors.New("topic is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	if err := b.client.Publish(ctx, topic, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe returns a channel of raw payloads for topic. The subscription
// is confirmed before returning; the channel closes when ctx is done.
func (b *EventBus) Subscribe(ctx context.Context, topic string) (<-chan []byte, error) {
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	sub := b.client.Subscribe(ctx, topic)

	// Ensure the subscription actually started before handing out the channel.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, b.buffer)
	go b.forward(ctx, sub, topic, out)
	return out, nil
}

func (b *EventBus) forward(ctx context.Context, sub *redis.PubSub, topic string, out chan<- []byte) {
	defer close(out)
	defer func() {
		if err := sub.Close(); err != nil {
			b.logger.Warn("close subscription failed", "topic", topic, "error", err)
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}
