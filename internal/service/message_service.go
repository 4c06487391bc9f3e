package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
)

var (
	ErrMessageNotFound    = errors.New("message not found")
	ErrNotMessageSender   = errors.New("only the message sender can perform this action")
	ErrNotMessageReceiver = errors.New("only the message receiver can mark it read")
	ErrEmptyBody          = errors.New("message body must not be empty")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrParentNotFound     = errors.New("parent message not found")
	ErrParentMismatch     = errors.New("parent message belongs to another conversation")
)

type MessageService struct {
	repos         repository.Repositories
	txr           repository.TxRunner
	notifications *NotificationService
}

func NewMessageService(repos repository.Repositories, txr repository.TxRunner, notifications *NotificationService) *MessageService {
	return &MessageService{
		repos:         repos,
		txr:           txr,
		notifications: notifications,
	}
}

// Send persists a new message and fans out its notifications in one
// transaction. Either the message and every notification commit together
// or nothing does.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID uuid.UUID, body, msgType string, parentID *uuid.UUID) (*domain.Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	if msgType == "" {
		msgType = domain.MessageTypeText
	}
	switch msgType {
	case domain.MessageTypeText, domain.MessageTypeImage, domain.MessageTypeFile:
	default:
		return nil, ErrInvalidMessageType
	}

	var created *domain.Message
	err := s.txr.WithinTx(ctx, func(r repository.Repositories) error {
		conv, err := r.Conversations.GetByID(ctx, conversationID)
		if err != nil {
			return err
		}
		if conv == nil {
			return ErrConversationNotFound
		}
		if !conv.IsParticipant(senderID) {
			return ErrNotParticipant
		}

		if parentID != nil {
			parent, err := r.Messages.GetByID(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return ErrParentNotFound
			}
			if parent.ConversationID != conversationID {
				return ErrParentMismatch
			}
		}

		sender, err := r.Users.GetByID(ctx, senderID)
		if err != nil {
			return err
		}
		if sender == nil {
			return ErrUserNotFound
		}

		msg := &domain.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			SenderID:       senderID,
			ReceiverID:     conv.OtherParticipant(senderID),
			Body:           body,
			Type:           msgType,
			ParentID:       parentID,
			SentAt:         time.Now(),
		}
		if err := r.Messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}

		if err := s.notifications.FanOut(ctx, r, msg, sender.Username, conv.ParticipantIDs); err != nil {
			return err
		}

		created = msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.repos.Messages.GetByID(ctx, created.ID)
	if err != nil || full == nil {
		return created, err
	}
	return full, nil
}

// Edit replaces the message body. The pre-edit row is read under a row lock
// inside the update transaction, so two concurrent edits each snapshot the
// body as it stood immediately before their own write. An edit that leaves
// the body unchanged records nothing.
func (s *MessageService) Edit(ctx context.Context, editorID, messageID uuid.UUID, newBody string) (*domain.Message, error) {
	if strings.TrimSpace(newBody) == "" {
		return nil, ErrEmptyBody
	}

	err := s.txr.WithinTx(ctx, func(r repository.Repositories) error {
		msg, err := r.Messages.GetForUpdate(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return ErrMessageNotFound
		}
		if msg.SenderID != editorID {
			return ErrNotMessageSender
		}
		if msg.Body == newBody {
			return nil
		}

		h := &domain.MessageHistory{
			ID:        uuid.New(),
			MessageID: msg.ID,
			OldBody:   msg.Body,
			OldType:   msg.Type,
			EditedBy:  editorID,
			EditedAt:  time.Now(),
		}
		if err := r.History.Create(ctx, h); err != nil {
			return fmt.Errorf("recording edit history: %w", err)
		}

		return r.Messages.UpdateBody(ctx, msg.ID, newBody)
	})
	if err != nil {
		return nil, err
	}

	return s.repos.Messages.GetByID(ctx, messageID)
}

// MarkRead marks a message read on behalf of its receiver. Idempotent:
// repeating the call succeeds with changed=false.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) (bool, error) {
	msg, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, ErrMessageNotFound
	}

	if msg.ReceiverID != nil {
		if *msg.ReceiverID != userID {
			return false, ErrNotMessageReceiver
		}
	} else {
		// Group conversation: any participant except the sender may mark read.
		conv, err := s.repos.Conversations.GetByID(ctx, msg.ConversationID)
		if err != nil {
			return false, err
		}
		if conv == nil || !conv.IsParticipant(userID) || msg.SenderID == userID {
			return false, ErrNotMessageReceiver
		}
	}

	changed, err := s.repos.Messages.MarkRead(ctx, messageID)
	if err != nil {
		return false, err
	}
	return changed > 0, nil
}

// Unread returns the user's unread received messages, newest first.
func (s *MessageService) Unread(ctx context.Context, userID uuid.UUID) ([]domain.Message, error) {
	messages, err := s.repos.Messages.ListUnreadForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	return messages, nil
}

// History returns the edit history of a message, newest snapshot first.
// Only conversation participants may read it.
func (s *MessageService) History(ctx context.Context, userID, messageID uuid.UUID) ([]domain.MessageHistory, error) {
	msg, err := s.repos.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrMessageNotFound
	}

	conv, err := s.repos.Conversations.GetByID(ctx, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil || !conv.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	history, err := s.repos.History.ListByMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []domain.MessageHistory{}
	}
	return history, nil
}
