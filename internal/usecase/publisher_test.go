package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
	"pulse-notify/pkg/queue"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type publishedMessage struct {
	routingKey string
	body       []byte
}

type fakeBroker struct {
	published    []publishedMessage
	attempts     int
	publishErr   error
	failOn       int // fail the Nth publish attempt (1-based)
	topologyErr  error
	deliveries   chan amqp.Delivery
	consumeErr   error
	cancelledTag string
}

func (f *fakeBroker) EnsureTopology() error {
	return f.topologyErr
}

func (f *fakeBroker) Publish(_ context.Context, routingKey string, body []byte) error {
	f.attempts++
	if f.failOn > 0 && f.attempts == f.failOn {
		return errors.New("broker rejected publish")
	}
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, publishedMessage{routingKey: routingKey, body: body})
	return nil
}

func (f *fakeBroker) Consume(_ string, _ int) (<-chan amqp.Delivery, error) {
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	if f.deliveries == nil {
		f.deliveries = make(chan amqp.Delivery)
	}
	return f.deliveries, nil
}

func (f *fakeBroker) CancelConsumer(tag string) error {
	f.cancelledTag = tag
	return nil
}

func validInput() PublishInput {
	return PublishInput{
		UserID:   "u1",
		Type:     entity.TypeInApp,
		Title:    "Hello",
		Body:     "World",
		Category: entity.CategoryUpdates,
	}
}

func TestPublish_Success(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewPublisher(broker, logger.New())

	notification, err := publisher.Publish(context.Background(), validInput())
	assert.NoError(t, err)
	assert.NotNil(t, notification)

	assert.True(t, strings.HasPrefix(notification.ID, "notif_"))
	assert.Equal(t, "u1", notification.UserID)
	assert.False(t, notification.CreatedAt.IsZero())
	assert.Nil(t, notification.ReadAt)

	assert.Len(t, broker.published, 1)
	assert.Equal(t, queue.RoutingKeyInApp, broker.published[0].routingKey)

	var message entity.QueueMessage
	assert.NoError(t, json.Unmarshal(broker.published[0].body, &message))
	assert.Equal(t, notification.ID, message.Notification.ID)
	assert.Equal(t, queue.RoutingKeyInApp, message.RoutingKey)
}

func TestPublish_UniqueIDs(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewPublisher(broker, logger.New())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		notification, err := publisher.Publish(context.Background(), validInput())
		assert.NoError(t, err)
		assert.False(t, seen[notification.ID], "duplicate id %s", notification.ID)
		seen[notification.ID] = true
	}
}

func TestPublish_MissingFields(t *testing.T) {
	publisher := NewPublisher(&fakeBroker{}, logger.New())

	input := validInput()
	input.UserID = ""
	input.Title = ""

	_, err := publisher.Publish(context.Background(), input)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
	assert.Contains(t, err.Error(), "title")
}

func TestPublish_UnknownType(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewPublisher(broker, logger.New())

	input := validInput()
	input.Type = entity.NotificationType("fax")

	_, err := publisher.Publish(context.Background(), input)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notification type")
	assert.Empty(t, broker.published)
}

func TestPublish_UnknownCategory(t *testing.T) {
	publisher := NewPublisher(&fakeBroker{}, logger.New())

	input := validInput()
	input.Category = entity.Category("spam")

	_, err := publisher.Publish(context.Background(), input)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown notification category")
}

func TestPublish_BrokerError(t *testing.T) {
	broker := &fakeBroker{publishErr: errors.New("not confirmed")}
	publisher := NewPublisher(broker, logger.New())

	_, err := publisher.Publish(context.Background(), validInput())
	assert.Error(t, err)
}

func TestPublishBatch_AbortsOnFailure(t *testing.T) {
	broker := &fakeBroker{failOn: 3}
	publisher := NewPublisher(broker, logger.New())

	inputs := []PublishInput{validInput(), validInput(), validInput(), validInput()}
	published, err := publisher.PublishBatch(context.Background(), inputs)

	assert.Error(t, err)
	// The first two made it out and stay published; the rest were skipped.
	assert.Len(t, published, 2)
	assert.Len(t, broker.published, 2)
}

func TestPublishBatch_AllSucceed(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewPublisher(broker, logger.New())

	published, err := publisher.PublishBatch(context.Background(), []PublishInput{validInput(), validInput()})
	assert.NoError(t, err)
	assert.Len(t, published, 2)
}

func TestBroadcast_OnePublishPerUser(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewPublisher(broker, logger.New())

	sent, err := publisher.BroadcastNotification(context.Background(), []string{"u1", "u2", "u3"}, "Title", "Body", entity.TypeInApp, entity.CategoryUpdates, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Len(t, broker.published, 3)

	// Each publish targets exactly one user.
	users := make(map[string]bool)
	for _, p := range broker.published {
		var message entity.QueueMessage
		assert.NoError(t, json.Unmarshal(p.body, &message))
		users[message.Notification.UserID] = true
	}
	assert.Len(t, users, 3)
}

func TestBroadcast_ContinuesPastFailures(t *testing.T) {
	broker := &fakeBroker{failOn: 2}
	publisher := NewPublisher(broker, logger.New())

	sent, err := publisher.BroadcastNotification(context.Background(), []string{"u1", "u2", "u3"}, "Title", "Body", entity.TypeInApp, entity.CategoryUpdates, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, sent)
}

func TestRoutingKeyForType(t *testing.T) {
	tests := []struct {
		notificationType entity.NotificationType
		expected         string
	}{
		{entity.TypeEmail, queue.RoutingKeyEmail},
		{entity.TypePush, queue.RoutingKeyPush},
		{entity.TypeInApp, queue.RoutingKeyInApp},
	}
	for _, tt := range tests {
		key, err := RoutingKeyForType(tt.notificationType)
		assert.NoError(t, err)
		assert.Equal(t, tt.expected, key)
	}

	_, err := RoutingKeyForType(entity.NotificationType("fax"))
	assert.Error(t, err)
}
