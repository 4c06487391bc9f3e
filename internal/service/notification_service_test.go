package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/courier/internal/domain"
)

func (e *testEnv) addNotification(userID uuid.UUID, read bool) domain.Notification {
	n := domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      domain.NotificationTypeMessage,
		Content:   "New message from someone: hi",
		CreatedAt: time.Now(),
		Read:      read,
	}
	e.store.Notifications[n.ID] = n
	return n
}

func TestNotificationMarkReadIdempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	bob := env.store.AddUser("bob")
	n := env.addNotification(bob, false)

	changed, err := env.notifications.MarkRead(ctx, bob, n.ID)
	req.NoError(err)
	req.True(changed)

	changed, err = env.notifications.MarkRead(ctx, bob, n.ID)
	req.NoError(err)
	req.False(changed)
	req.True(env.store.Notifications[n.ID].Read)
}

func TestNotificationMarkReadOwnership(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	bob := env.store.AddUser("bob")
	mallory := env.store.AddUser("mallory")
	n := env.addNotification(bob, false)

	_, err := env.notifications.MarkRead(ctx, mallory, n.ID)
	req.ErrorIs(err, ErrNotNotificationOwner)

	_, err = env.notifications.MarkRead(ctx, bob, uuid.New())
	req.ErrorIs(err, ErrNotificationNotFound)
}

func TestMarkAllReadCountsOnlyPreviouslyUnread(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	bob := env.store.AddUser("bob")
	carol := env.store.AddUser("carol")
	env.addNotification(bob, false)
	env.addNotification(bob, false)
	env.addNotification(bob, true)
	env.addNotification(carol, false)

	count, err := env.notifications.MarkAllRead(ctx, bob)
	req.NoError(err)
	req.EqualValues(2, count)

	// Re-running reports nothing new, no double counting.
	count, err = env.notifications.MarkAllRead(ctx, bob)
	req.NoError(err)
	req.EqualValues(0, count)

	// Carol's notification is untouched.
	unread, err := env.notifications.List(ctx, carol, true)
	req.NoError(err)
	req.Len(unread, 1)
}

func TestDeleteAllReadRemovesOnlyRead(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	bob := env.store.AddUser("bob")
	env.addNotification(bob, true)
	env.addNotification(bob, true)
	kept := env.addNotification(bob, false)

	count, err := env.notifications.DeleteAllRead(ctx, bob)
	req.NoError(err)
	req.EqualValues(2, count)

	remaining, err := env.notifications.List(ctx, bob, false)
	req.NoError(err)
	req.Len(remaining, 1)
	req.Equal(kept.ID, remaining[0].ID)

	count, err = env.notifications.DeleteAllRead(ctx, bob)
	req.NoError(err)
	req.EqualValues(0, count)
}

func TestListUnreadNotifications(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	bob := env.store.AddUser("bob")
	env.addNotification(bob, true)
	unreadN := env.addNotification(bob, false)

	all, err := env.notifications.List(ctx, bob, false)
	req.NoError(err)
	req.Len(all, 2)

	unread, err := env.notifications.List(ctx, bob, true)
	req.NoError(err)
	req.Len(unread, 1)
	req.Equal(unreadN.ID, unread[0].ID)
}
