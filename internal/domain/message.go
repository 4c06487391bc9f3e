package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

type Message struct {
	ID             uuid.UUID  `json:"id"`
	ConversationID uuid.UUID  `json:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id"`
	ReceiverID     *uuid.UUID `json:"receiver_id,omitempty"`
	Body           string     `json:"body"`
	Type           string     `json:"type"`
	ParentID       *uuid.UUID `json:"parent_id,omitempty"`
	SentAt         time.Time  `json:"sent_at"`
	Read           bool       `json:"read"`
	Edited         bool       `json:"edited"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

// MessageHistory is an append-only snapshot of a message body taken
// immediately before an edit overwrote it.
type MessageHistory struct {
	ID        uuid.UUID `json:"id"`
	MessageID uuid.UUID `json:"message_id"`
	OldBody   string    `json:"old_body"`
	OldType   string    `json:"old_type"`
	EditedBy  uuid.UUID `json:"edited_by"`
	EditedAt  time.Time `json:"edited_at"`
}
