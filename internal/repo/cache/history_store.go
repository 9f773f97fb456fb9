package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
)

const (
	historyKeyPrefix = "notifications:user:"
	historyTTL       = 7 * 24 * time.Hour

	// HistoryLimit caps the stored list per user; the oldest entries are
	// evicted first.
	HistoryLimit = 100
)

// HistoryStore keeps a bounded, newest-first list of delivered notifications
// per user. Every operation is a linear pass over the list, which is fine
// because the list never exceeds HistoryLimit entries.
type HistoryStore struct {
	cache  ListCache
	logger *logger.Logger
}

func NewHistoryStore(cache ListCache, log *logger.Logger) *HistoryStore {
	return &HistoryStore{cache: cache, logger: log}
}

func historyKey(userID string) string {
	return historyKeyPrefix + userID
}

// Append inserts the notification at the head, truncates the list to
// HistoryLimit entries and refreshes the key TTL.
func (s *HistoryStore) Append(ctx context.Context, userID string, notification entity.Notification) error {
	raw, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	key := historyKey(userID)
	if err := s.cache.LPush(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("failed to push notification to history: %w", err)
	}
	if err := s.cache.LTrim(ctx, key, 0, HistoryLimit-1); err != nil {
		s.logger.Warn("Failed to trim history for user %s: %v", userID, err)
	}
	if err := s.cache.Expire(ctx, key, historyTTL); err != nil {
		s.logger.Warn("Failed to set history expiration for user %s: %v", userID, err)
	}
	return nil
}

// Range returns a newest-first slice of the history plus the total count.
func (s *HistoryStore) Range(ctx context.Context, userID string, offset, limit int) ([]entity.Notification, int64, error) {
	key := historyKey(userID)

	raw, err := s.cache.LRange(ctx, key, int64(offset), int64(offset+limit-1))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	var notifications []entity.Notification
	for _, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err == nil {
			notifications = append(notifications, notification)
		}
	}

	total, err := s.cache.LLen(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkRead stamps ReadAt on the notification with the given id and replaces
// the entry in place. It reports whether the notification was found. Marking
// an already-read notification is a no-op.
func (s *HistoryStore) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	key := historyKey(userID)

	raw, err := s.cache.LRange(ctx, key, 0, -1)
	if err != nil {
		return false, fmt.Errorf("failed to get notifications: %w", err)
	}

	for i, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err != nil {
			continue
		}
		if notification.ID != notificationID {
			continue
		}
		if notification.ReadAt != nil {
			return true, nil
		}

		now := time.Now().UTC()
		notification.ReadAt = &now
		updated, err := json.Marshal(notification)
		if err != nil {
			return false, fmt.Errorf("failed to marshal notification: %w", err)
		}
		if err := s.cache.LSet(ctx, key, int64(i), string(updated)); err != nil {
			return false, fmt.Errorf("failed to update notification: %w", err)
		}
		return true, nil
	}

	return false, nil
}

// Remove deletes the first entry matching the notification id and reports
// whether one was found.
func (s *HistoryStore) Remove(ctx context.Context, userID, notificationID string) (bool, error) {
	key := historyKey(userID)

	raw, err := s.cache.LRange(ctx, key, 0, -1)
	if err != nil {
		return false, fmt.Errorf("failed to get notifications: %w", err)
	}

	for _, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err != nil {
			continue
		}
		if notification.ID != notificationID {
			continue
		}
		removed, err := s.cache.LRem(ctx, key, 1, item)
		if err != nil {
			return false, fmt.Errorf("failed to remove notification: %w", err)
		}
		return removed > 0, nil
	}

	return false, nil
}

// UnreadCount scans the list and counts entries without a ReadAt stamp.
func (s *HistoryStore) UnreadCount(ctx context.Context, userID string) (int64, error) {
	raw, err := s.cache.LRange(ctx, historyKey(userID), 0, -1)
	if err != nil {
		return 0, fmt.Errorf("failed to get notifications: %w", err)
	}

	var count int64
	for _, item := range raw {
		var notification entity.Notification
		if err := json.Unmarshal([]byte(item), &notification); err != nil {
			continue
		}
		if notification.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

// Clear drops the user's entire history.
func (s *HistoryStore) Clear(ctx context.Context, userID string) error {
	if err := s.cache.Del(ctx, historyKey(userID)); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
