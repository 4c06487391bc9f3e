package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
	"github.com/courierhq/courier/pkg/pagination"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("you are not a participant of this conversation")
	ErrTooFewParticipants   = errors.New("a conversation needs at least 2 distinct participants")
)

const (
	DefaultPageSize = 10
	maxPageSize     = 100
)

type ConversationService struct {
	repos repository.Repositories
	txr   repository.TxRunner
}

func NewConversationService(repos repository.Repositories, txr repository.TxRunner) *ConversationService {
	return &ConversationService{repos: repos, txr: txr}
}

// MessageQuery describes one page of a filtered message listing.
// Before=true walks toward older positions in the chosen ordering; the
// returned page keeps the display order either way.
type MessageQuery struct {
	Search     string
	SenderID   *uuid.UUID
	SentAfter  *time.Time
	SentBefore *time.Time
	Unread     *bool
	Ascending  bool
	Cursor     string
	Before     bool
	Limit      int
}

type MessagePageResponse struct {
	Messages []domain.Message `json:"messages"`
	Next     *string          `json:"next,omitempty"`
	Previous *string          `json:"previous,omitempty"`
}

type ConversationPageResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Next          *string               `json:"next,omitempty"`
}

// Create starts a conversation between the creator and the given
// participants. The creator is always included; duplicates collapse.
func (s *ConversationService) Create(ctx context.Context, creatorID uuid.UUID, participantIDs []uuid.UUID) (*domain.Conversation, error) {
	seen := map[uuid.UUID]bool{creatorID: true}
	distinct := []uuid.UUID{creatorID}
	for _, id := range participantIDs {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		distinct = append(distinct, id)
	}
	if len(distinct) < 2 {
		return nil, ErrTooFewParticipants
	}

	for _, id := range distinct {
		user, err := s.repos.Users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
	}

	conv := &domain.Conversation{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		ParticipantIDs: distinct,
	}

	err := s.txr.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Conversations.Create(ctx, conv); err != nil {
			return fmt.Errorf("creating conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// List returns the caller's conversations, newest first, keyset-paginated.
func (s *ConversationService) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (*ConversationPageResponse, error) {
	limit = clampLimit(limit)

	after, err := decodeCursor(cursor)
	if err != nil {
		return nil, err
	}

	convs, err := s.repos.Conversations.ListByUser(ctx, userID, after, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &ConversationPageResponse{Conversations: convs}
	if len(convs) > limit {
		resp.Conversations = convs[:limit]
		last := resp.Conversations[limit-1]
		token := pagination.Cursor{Timestamp: last.CreatedAt, ID: last.ID}.Encode()
		resp.Next = &token
	}
	if resp.Conversations == nil {
		resp.Conversations = []domain.Conversation{}
	}
	return resp, nil
}

// Messages returns one page of a conversation's messages for a participant.
// A missing conversation is reported before an authorization failure; a
// non-participant never learns more than that the conversation exists.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID uuid.UUID, q MessageQuery) (*MessagePageResponse, error) {
	conv, err := s.repos.Conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.IsParticipant(userID) {
		return nil, ErrNotParticipant
	}

	limit := clampLimit(q.Limit)

	after, err := decodeCursor(q.Cursor)
	if err != nil {
		return nil, err
	}
	if after == nil && q.Before {
		return nil, pagination.ErrInvalidCursor
	}

	filter := repository.MessageFilter{
		Search:     q.Search,
		SenderID:   q.SenderID,
		SentAfter:  q.SentAfter,
		SentBefore: q.SentBefore,
		Unread:     q.Unread,
	}

	// Backward pages scan in the opposite direction and are flipped back
	// afterwards, so every page reads in display order.
	scanAsc := q.Ascending
	if q.Before {
		scanAsc = !scanAsc
	}

	messages, err := s.repos.Messages.ListByConversation(ctx, conversationID, filter, repository.MessagePage{
		After:     after,
		Limit:     limit + 1,
		Ascending: scanAsc,
	})
	if err != nil {
		return nil, err
	}

	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	if q.Before {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	resp := &MessagePageResponse{Messages: messages}
	if len(messages) > 0 {
		firstKey := messageCursor(messages[0])
		lastKey := messageCursor(messages[len(messages)-1])

		if q.Before {
			resp.Next = &lastKey
			if hasMore {
				resp.Previous = &firstKey
			}
		} else {
			if hasMore {
				resp.Next = &lastKey
			}
			if after != nil {
				resp.Previous = &firstKey
			}
		}
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	return resp, nil
}

func messageCursor(msg domain.Message) string {
	return pagination.Cursor{Timestamp: msg.SentAt, ID: msg.ID}.Encode()
}

func decodeCursor(token string) (*pagination.Cursor, error) {
	if token == "" {
		return nil, nil
	}
	c, err := pagination.Decode(token)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
