package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/pkg/pagination"
)

// MessageFilter narrows a message listing. Zero values mean "no constraint".
type MessageFilter struct {
	Search     string
	SenderID   *uuid.UUID
	SentAfter  *time.Time
	SentBefore *time.Time
	Unread     *bool
}

// MessagePage describes one keyset-paginated slice of a message listing.
// After is an exclusive position in the (sent_at, id) ordering; Ascending
// selects the sort direction the cursor comparison follows.
type MessagePage struct {
	After     *pagination.Cursor
	Limit     int
	Ascending bool
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID, after *pagination.Cursor, limit int) ([]domain.Conversation, error)
	DeleteParticipant(ctx context.Context, userID uuid.UUID) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// GetForUpdate reads the row under a row lock. Only meaningful inside a
	// transaction; the lock holds until commit or rollback.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	UpdateBody(ctx context.Context, id uuid.UUID, body string) error
	MarkRead(ctx context.Context, id uuid.UUID) (int64, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID, filter MessageFilter, page MessagePage) ([]domain.Message, error)
	ListUnreadForUser(ctx context.Context, userID uuid.UUID) ([]domain.Message, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type MessageHistoryRepository interface {
	Create(ctx context.Context, h *domain.MessageHistory) error
	ListByMessage(ctx context.Context, messageID uuid.UUID) ([]domain.MessageHistory, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (int64, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Repositories bundles every store port. Services receive one bundle backed
// by the pool for single-statement work and a transaction-scoped bundle from
// TxRunner for multi-step writes.
type Repositories struct {
	Users         UserRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	History       MessageHistoryRepository
	Notifications NotificationRepository
}

// TxRunner executes fn against a repository bundle bound to a single
// transaction. The transaction commits when fn returns nil and rolls back
// otherwise, including when ctx is cancelled mid-flight.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(r Repositories) error) error
}
