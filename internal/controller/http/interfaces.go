package http

import (
	"context"

	"pulse-notify/internal/entity"
	"pulse-notify/internal/usecase"
)

type PublisherUseCase interface {
	Publish(ctx context.Context, input usecase.PublishInput) (*entity.Notification, error)
	PublishBatch(ctx context.Context, inputs []usecase.PublishInput) ([]entity.Notification, error)
	BroadcastNotification(ctx context.Context, userIDs []string, title, body string, notificationType entity.NotificationType, category entity.Category, metadata map[string]interface{}) (int, error)
}

type HistoryUseCase interface {
	Range(ctx context.Context, userID string, offset, limit int) ([]entity.Notification, int64, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	Remove(ctx context.Context, userID, notificationID string) (bool, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	Clear(ctx context.Context, userID string) error
}

type PreferenceUseCase interface {
	Get(ctx context.Context, userID string) entity.UserPreferences
	Set(ctx context.Context, userID string, update entity.PreferencesUpdate) (entity.UserPreferences, error)
	Delete(ctx context.Context, userID string) error
}
