package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
	"pulse-notify/pkg/queue"

	"github.com/google/uuid"
)

// PublishInput is a validated request to create and enqueue a notification.
type PublishInput struct {
	UserID   string                 `json:"user_id"`
	Type     entity.NotificationType `json:"type"`
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Category entity.Category        `json:"category"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Publisher builds notifications and hands them to the broker with
// persistent delivery semantics.
type Publisher struct {
	broker Broker
	logger *logger.Logger
}

func NewPublisher(broker Broker, log *logger.Logger) *Publisher {
	return &Publisher{broker: broker, logger: log}
}

// Publish validates the input, stamps identity and creation time, and
// publishes the enveloped notification under its type's routing key.
func (p *Publisher) Publish(ctx context.Context, input PublishInput) (*entity.Notification, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	routingKey, err := RoutingKeyForType(input.Type)
	if err != nil {
		return nil, err
	}

	notification := entity.Notification{
		ID:        newNotificationID(),
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     input.Title,
		Body:      input.Body,
		Category:  input.Category,
		Metadata:  input.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	message := entity.QueueMessage{
		Notification: notification,
		RoutingKey:   routingKey,
		Timestamp:    time.Now().UTC(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal queue message: %w", err)
	}

	if err := p.broker.Publish(ctx, routingKey, body); err != nil {
		return nil, fmt.Errorf("failed to deliver notification to broker: %w", err)
	}

	p.logger.Info("Published notification %s for user %s (type=%s, category=%s)", notification.ID, notification.UserID, notification.Type, notification.Category)
	return &notification, nil
}

// PublishBatch publishes sequentially. A failure aborts the remaining items;
// already-published items stay published.
func (p *Publisher) PublishBatch(ctx context.Context, inputs []PublishInput) ([]entity.Notification, error) {
	published := make([]entity.Notification, 0, len(inputs))
	for i, input := range inputs {
		notification, err := p.Publish(ctx, input)
		if err != nil {
			return published, fmt.Errorf("batch aborted at item %d: %w", i, err)
		}
		published = append(published, *notification)
	}
	return published, nil
}

// NotifyUser is a convenience wrapper around Publish.
func (p *Publisher) NotifyUser(ctx context.Context, userID, title, body string, notificationType entity.NotificationType, category entity.Category, metadata map[string]interface{}) (*entity.Notification, error) {
	return p.Publish(ctx, PublishInput{
		UserID:   userID,
		Type:     notificationType,
		Title:    title,
		Body:     body,
		Category: category,
		Metadata: metadata,
	})
}

// BroadcastNotification issues one independent publish per target user and
// returns the number that made it to the broker.
func (p *Publisher) BroadcastNotification(ctx context.Context, userIDs []string, title, body string, notificationType entity.NotificationType, category entity.Category, metadata map[string]interface{}) (int, error) {
	sent := 0
	for _, userID := range userIDs {
		_, err := p.NotifyUser(ctx, userID, title, body, notificationType, category, metadata)
		if err != nil {
			p.logger.Error("Failed to publish broadcast notification for user %s: %v", userID, err)
			continue
		}
		sent++
	}

	p.logger.Info("Broadcast published for %d/%d users: %s", sent, len(userIDs), title)
	return sent, nil
}

func validateInput(input PublishInput) error {
	var missing []string
	if input.UserID == "" {
		missing = append(missing, "user_id")
	}
	if input.Type == "" {
		missing = append(missing, "type")
	}
	if input.Title == "" {
		missing = append(missing, "title")
	}
	if input.Body == "" {
		missing = append(missing, "body")
	}
	if input.Category == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if !input.Type.Valid() {
		return fmt.Errorf("unknown notification type: %s", input.Type)
	}
	if !input.Category.Valid() {
		return fmt.Errorf("unknown notification category: %s", input.Category)
	}
	return nil
}

// RoutingKeyForType is a total function over the recognized types.
func RoutingKeyForType(t entity.NotificationType) (string, error) {
	switch t {
	case entity.TypeEmail:
		return queue.RoutingKeyEmail, nil
	case entity.TypePush:
		return queue.RoutingKeyPush, nil
	case entity.TypeInApp:
		return queue.RoutingKeyInApp, nil
	}
	return "", fmt.Errorf("unknown notification type: %s", t)
}

// newNotificationID builds a time-prefixed id with a random suffix. It only
// needs to be collision-resistant in practice, not cryptographically strong.
func newNotificationID() string {
	return fmt.Sprintf("notif_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
