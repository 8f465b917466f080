// Package redisfeed carries changes between instances over Redis Pub/Sub.
// Stores publish through Publisher; every instance runs a Relay that feeds
// its local hub.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/realtime"
)

type Publisher struct {
	client  *redis.Client
	channel string
}

func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, change realtime.Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish change to %s: %w", p.channel, err)
	}
	return nil
}

type Relay struct {
	client  *redis.Client
	channel string
	target  realtime.Dispatcher
	logger  *slog.Logger
	ready   chan struct{}
}

func NewRelay(client *redis.Client, channel string, target realtime.Dispatcher, logger *slog.Logger) *Relay {
	return &Relay{
		client:  client,
		channel: channel,
		target:  target,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once Redis has confirmed the subscription.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run relays until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	close(r.ready)
	r.logger.Info("change relay subscribed", "channel", r.channel)

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var change realtime.Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				r.logger.Warn("dropping malformed change message", "channel", r.channel, "error", err)
				continue
			}
			r.target.Dispatch(change)
		}
	}
}
