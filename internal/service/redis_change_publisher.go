package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/attendance-tracker/internal/models"
)

// DefaultChangesChannel is the Redis channel changes are published to.
const DefaultChangesChannel = "attendance:changes"

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type changeSubscriber interface {
	Subscribe() (<-chan models.Change, func())
}

// RedisChangePublisher mirrors notifier changes onto a Redis pub/sub channel.
type RedisChangePublisher struct {
	client  redisPublisher
	channel string
	logger  *zap.Logger
}

// NewRedisChangePublisher builds a bridge publishing to channel.
func NewRedisChangePublisher(client redisPublisher, channel string, logger *zap.Logger) *RedisChangePublisher {
	if channel == "" {
		channel = DefaultChangesChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisChangePublisher{client: client, channel: channel, logger: logger}
}

// Run forwards changes until ctx is cancelled or the notifier closes.
// Publish failures are logged and the change is dropped.
func (p *RedisChangePublisher) Run(ctx context.Context, source changeSubscriber) {
	changes, unsubscribe := source.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			p.forward(ctx, change)
		}
	}
}

func (p *RedisChangePublisher) forward(ctx context.Context, change models.Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		p.logger.Error("failed to encode change", zap.Error(err))
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("failed to publish change to redis",
			zap.String("channel", p.channel),
			zap.String("topic", change.Topic),
			zap.Error(err))
	}
}
