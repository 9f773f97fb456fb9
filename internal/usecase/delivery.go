package usecase

import (
	"context"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
)

// DeliveryHandler performs the channel-specific side effect for one
// notification. Real gateway integrations are injected as overrides; the
// defaults only record intent.
type DeliveryHandler func(ctx context.Context, notification entity.Notification, prefs entity.UserPreferences) error

// DefaultHandlers returns the best-effort stub handlers for every
// recognized type.
func DefaultHandlers(log *logger.Logger) map[entity.NotificationType]DeliveryHandler {
	return map[entity.NotificationType]DeliveryHandler{
		entity.TypeEmail: func(ctx context.Context, n entity.Notification, _ entity.UserPreferences) error {
			log.Info("[EMAIL] Would send email to user %s: %s", n.UserID, n.Title)
			return nil
		},
		entity.TypePush: func(ctx context.Context, n entity.Notification, _ entity.UserPreferences) error {
			log.Info("[PUSH] Would send push notification to user %s: %s", n.UserID, n.Title)
			return nil
		},
		entity.TypeInApp: func(ctx context.Context, n entity.Notification, _ entity.UserPreferences) error {
			log.Info("[IN-APP] Delivering in-app notification to user %s: %s", n.UserID, n.Title)
			return nil
		},
	}
}
