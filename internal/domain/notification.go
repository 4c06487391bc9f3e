package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationTypeMessage = "message"
	NotificationTypeSystem  = "system"
)

type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	MessageID *uuid.UUID `json:"message_id,omitempty"`
	Type      string     `json:"type"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	Read      bool       `json:"read"`
}
