package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotNotificationOwner = errors.New("notification belongs to another user")
)

// notificationPreviewLimit caps how much of a message body the notification
// content carries before it is cut off with an ellipsis.
const notificationPreviewLimit = 50

type NotificationService struct {
	repos repository.Repositories
}

func NewNotificationService(repos repository.Repositories) *NotificationService {
	return &NotificationService{repos: repos}
}

// FanOut creates one notification per conversation participant other than
// the sender. Callers invoke it with the transaction-scoped bundle of the
// message insert, so a failed notification aborts the message too.
func (s *NotificationService) FanOut(ctx context.Context, r repository.Repositories, msg *domain.Message, senderUsername string, participantIDs []uuid.UUID) error {
	content := notificationContent(senderUsername, msg.Body)

	for _, userID := range participantIDs {
		if userID == msg.SenderID {
			continue
		}
		messageID := msg.ID
		n := &domain.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			MessageID: &messageID,
			Type:      domain.NotificationTypeMessage,
			Content:   content,
			CreatedAt: time.Now(),
		}
		if err := r.Notifications.Create(ctx, n); err != nil {
			return fmt.Errorf("creating notification for %s: %w", userID, err)
		}
	}
	return nil
}

func notificationContent(senderUsername, body string) string {
	preview := body
	if runes := []rune(body); len(runes) > notificationPreviewLimit {
		preview = string(runes[:notificationPreviewLimit]) + "..."
	}
	return fmt.Sprintf("New message from %s: %s", senderUsername, preview)
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.Notification, error) {
	notifications, err := s.repos.Notifications.ListByUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []domain.Notification{}
	}
	return notifications, nil
}

// MarkRead marks a single notification read. It is idempotent: marking an
// already-read notification succeeds and reports changed=false.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (bool, error) {
	n, err := s.repos.Notifications.GetByID(ctx, notificationID)
	if err != nil {
		return false, err
	}
	if n == nil {
		return false, ErrNotificationNotFound
	}
	if n.UserID != userID {
		return false, ErrNotNotificationOwner
	}

	changed, err := s.repos.Notifications.MarkRead(ctx, notificationID)
	if err != nil {
		return false, err
	}
	return changed > 0, nil
}

// MarkAllRead marks every unread notification of the user read and returns
// how many rows changed. The single guarded UPDATE keeps concurrent callers
// from counting the same row twice.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repos.Notifications.MarkAllRead(ctx, userID)
}

// DeleteAllRead removes every read notification of the user and returns the
// number removed.
func (s *NotificationService) DeleteAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repos.Notifications.DeleteAllRead(ctx, userID)
}
