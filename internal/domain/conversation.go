package domain

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID             uuid.UUID   `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

// IsParticipant reports whether the given user belongs to the conversation.
func (c *Conversation) IsParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the counterpart in a two-party conversation,
// or nil when the conversation has more than two participants.
func (c *Conversation) OtherParticipant(userID uuid.UUID) *uuid.UUID {
	if len(c.ParticipantIDs) != 2 {
		return nil
	}
	for _, id := range c.ParticipantIDs {
		if id != userID {
			other := id
			return &other
		}
	}
	return nil
}
