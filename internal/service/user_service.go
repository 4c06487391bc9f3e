package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

type UserService struct {
	repos repository.Repositories
	txr   repository.TxRunner
}

func NewUserService(repos repository.Repositories, txr repository.TxRunner) *UserService {
	return &UserService{repos: repos, txr: txr}
}

// CascadeResult reports how many dependent rows a user deletion removed.
type CascadeResult struct {
	Messages      int64 `json:"messages"`
	Notifications int64 `json:"notifications"`
	History       int64 `json:"history"`
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repos.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Delete removes the user and everything that depends on them in one
// transaction: messages they sent or received, notifications targeting
// them, and the history of those messages. Foreign keys would cascade most
// of this anyway; the explicit deletes guarantee no orphan survives no
// matter how the deletion was triggered, and make the operation idempotent.
func (s *UserService) Delete(ctx context.Context, userID uuid.UUID) (*CascadeResult, error) {
	var result CascadeResult
	err := s.txr.WithinTx(ctx, func(r repository.Repositories) error {
		// History first: its rows reference messages about to go away.
		h, err := r.History.DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("deleting message history: %w", err)
		}

		n, err := r.Notifications.DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("deleting notifications: %w", err)
		}

		m, err := r.Messages.DeleteByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("deleting messages: %w", err)
		}

		if _, err := r.Conversations.DeleteParticipant(ctx, userID); err != nil {
			return fmt.Errorf("removing conversation memberships: %w", err)
		}

		if _, err := r.Users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("deleting user: %w", err)
		}

		result = CascadeResult{Messages: m, Notifications: n, History: h}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
