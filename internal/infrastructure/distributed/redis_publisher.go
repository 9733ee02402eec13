package distributed

import (
	"context"
	"encoding/json"

	"roomcast/internal/core/domain"
	"roomcast/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher fans room lifecycle events out over a redis pub/sub
// channel for external subscribers (dashboards, audit consumers).
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.SugaredLogger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *zap.SugaredLogger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

var _ ports.RoomEventPublisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) Publish(ctx context.Context, event *domain.RoomEvent) {
	if event == nil || event.RoomID == "" || event.EventType == "" {
		return
	}
	stamp(event)

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warnw("failed to marshal event", "event_type", event.EventType, "error", err)
		return
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.Warnw("failed to publish event",
			"event_type", event.EventType, "room_id", event.RoomID, "error", err)
		return
	}

	p.logger.Debugw("published event", "event_type", event.EventType, "room_id", event.RoomID)
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Subscribe consumes room events from the channel and calls handler for
// each. It blocks until ctx is cancelled.
func Subscribe(ctx context.Context, client *redis.Client, channel string, logger *zap.SugaredLogger, handler func(*domain.RoomEvent) error) error {
	pubsub := client.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			var event domain.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Warnw("failed to unmarshal event", "error", err, "payload", msg.Payload)
				continue
			}
			if err := handler(&event); err != nil {
				logger.Warnw("error handling event", "event_type", event.EventType, "error", err)
			}
		}
	}
}
