package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedis_PublishReachesSubscribers(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	channel := "test:pubsub:" + t.Name()
	subscriber := NewRedis(client, channel)
	publisher := NewRedis(client, channel)

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- subscriber.Subscribe(ctx, func(message string) {
			select {
			case received <- message:
			default:
			}
		})
	}()

	// publish until the subscription is live
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, publisher.Publish(context.Background(), "org-1"))
		select {
		case got := <-received:
			assert.Equal(t, "org-1", got)
			cancel()
			require.NoError(t, <-done)
			return
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			cancel()
			t.Fatal("message was not delivered")
		}
	}
}
