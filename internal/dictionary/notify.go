package dictionary

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// InvalidateChannel is the Redis channel that announces dictionary changes
// made by another process
const InvalidateChannel = "rootword:dictionary:invalidate"

// Publisher announces invalidations over Redis. The worker uses it so the
// API server drops its cached words after an import.
type Publisher struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewPublisher creates a publisher on client
func NewPublisher(client *redis.Client, logger zerolog.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// Invalidate publishes an invalidation message
func (p *Publisher) Invalidate() {
	if err := p.client.Publish(context.Background(), InvalidateChannel, "1").Err(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to publish dictionary invalidation")
	}
}

// Subscribe invalidates the cache whenever a message arrives on
// InvalidateChannel. It returns once the subscription is active and stops
// listening when ctx is done.
func (c *Cache) Subscribe(ctx context.Context, client *redis.Client) error {
	sub := client.Subscribe(ctx, InvalidateChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				c.logger.Debug().Msg("Dictionary invalidated by peer")
				c.Invalidate()
			}
		}
	}()

	return nil
}
