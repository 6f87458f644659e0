package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Redis publishes short string messages on one channel and delivers them to
// every subscribed instance, including the publisher itself.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	return &Redis{client: client, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, message string) error {
	if err := r.client.Publish(ctx, r.channel, message).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

// Subscribe calls handle for every message until ctx is done. It returns
// once the subscription could not be established or ctx ends.
func (r *Redis) Subscribe(ctx context.Context, handle func(message string)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// wait for the confirmation so a bad connection surfaces here
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", r.channel, err)
	}
	slog.Info("Subscribed to channel", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			handle(msg.Payload)
		}
	}
}
