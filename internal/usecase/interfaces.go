package usecase

import (
	"context"

	"pulse-notify/internal/entity"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker is the queue.Manager surface the publisher and dispatcher use.
type Broker interface {
	EnsureTopology() error
	Publish(ctx context.Context, routingKey string, body []byte) error
	Consume(tag string, prefetch int) (<-chan amqp.Delivery, error)
	CancelConsumer(tag string) error
}

// PreferenceGetter reads delivery preferences; it never fails, degrading to
// defaults instead.
type PreferenceGetter interface {
	Get(ctx context.Context, userID string) entity.UserPreferences
}

// HistoryAppender persists delivered notifications.
type HistoryAppender interface {
	Append(ctx context.Context, userID string, notification entity.Notification) error
}

// LivePusher fans delivered notifications out to live connections.
type LivePusher interface {
	Send(userID, event string, payload interface{}) bool
}
