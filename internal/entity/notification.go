package entity

import "time"

type NotificationType string

const (
	TypeEmail NotificationType = "email"
	TypePush  NotificationType = "push"
	TypeInApp NotificationType = "in-app"
)

func (t NotificationType) Valid() bool {
	switch t {
	case TypeEmail, TypePush, TypeInApp:
		return true
	}
	return false
}

type Category string

const (
	CategoryMarketing Category = "marketing"
	CategoryUpdates   Category = "updates"
	CategorySecurity  Category = "security"
	CategorySocial    Category = "social"
	CategoryReminders Category = "reminders"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryMarketing, CategoryUpdates, CategorySecurity, CategorySocial, CategoryReminders:
		return true
	}
	return false
}

// Notification is the unit of delivery. Every field except ReadAt is
// immutable once the notification is created.
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Category  Category               `json:"category"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	ReadAt    *time.Time             `json:"read_at,omitempty"`
}

// QueueMessage is the envelope placed on the broker.
type QueueMessage struct {
	Notification Notification `json:"notification"`
	RoutingKey   string       `json:"routing_key"`
	Timestamp    time.Time    `json:"timestamp"`
}
