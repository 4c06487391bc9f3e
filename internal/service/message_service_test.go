package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/courierhq/courier/internal/domain"
	"github.com/courierhq/courier/internal/repository/repotest"
)

type testEnv struct {
	store         *repotest.Store
	messages      *MessageService
	notifications *NotificationService
	conversations *ConversationService
	users         *UserService
}

func newTestEnv() *testEnv {
	store := repotest.New()
	repos := store.Repositories()
	notifications := NewNotificationService(repos)
	return &testEnv{
		store:         store,
		notifications: notifications,
		messages:      NewMessageService(repos, store, notifications),
		conversations: NewConversationService(repos, store),
		users:         NewUserService(repos, store),
	}
}

func (e *testEnv) addConversation(participants ...uuid.UUID) uuid.UUID {
	conv := domain.Conversation{
		ID:             uuid.New(),
		CreatedAt:      time.Now(),
		ParticipantIDs: participants,
	}
	e.store.Conversations[conv.ID] = conv
	return conv.ID
}

func TestSendCreatesExactlyOneNotificationForCounterpart(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hi there", "", nil)
	req.NoError(err)
	req.NotNil(msg.ReceiverID)
	req.Equal(bob, *msg.ReceiverID)
	req.False(msg.Read)

	req.Len(env.store.Notifications, 1)
	for _, n := range env.store.Notifications {
		req.Equal(bob, n.UserID)
		req.Equal(domain.NotificationTypeMessage, n.Type)
		req.NotNil(n.MessageID)
		req.Equal(msg.ID, *n.MessageID)
		req.Equal("New message from alice: hi there", n.Content)
		req.False(n.Read)
	}
}

func TestSendTruncatesLongBodyInNotification(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	body := "Hello World, this is a long test message exceeding fifty characters for sure"
	_, err := env.messages.Send(ctx, alice, convID, body, "", nil)
	req.NoError(err)

	want := "New message from alice: " + string([]rune(body)[:50]) + "..."
	req.Len(env.store.Notifications, 1)
	for _, n := range env.store.Notifications {
		req.Equal(bob, n.UserID)
		req.Equal(want, n.Content)
	}
}

func TestNotificationContentBoundary(t *testing.T) {
	req := require.New(t)

	exactly50 := strings.Repeat("x", 50)
	req.Equal("New message from a: "+exactly50, notificationContent("a", exactly50))

	over := strings.Repeat("y", 51)
	req.Equal("New message from a: "+strings.Repeat("y", 50)+"...", notificationContent("a", over))
}

func TestSendGroupFansOutToAllOtherParticipants(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	carol := env.store.AddUser("carol")
	convID := env.addConversation(alice, bob, carol)

	msg, err := env.messages.Send(ctx, alice, convID, "hello all", "", nil)
	req.NoError(err)
	req.Nil(msg.ReceiverID)

	req.Len(env.store.Notifications, 2)
	targets := map[uuid.UUID]bool{}
	for _, n := range env.store.Notifications {
		targets[n.UserID] = true
	}
	req.True(targets[bob])
	req.True(targets[carol])
	req.False(targets[alice])
}

func TestSendRejectsEmptyBody(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	_, err := env.messages.Send(ctx, alice, convID, "   \t\n", "", nil)
	req.ErrorIs(err, ErrEmptyBody)
	req.Empty(env.store.Messages)
}

func TestSendFailedFanOutAbortsMessage(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	env.store.NotificationCreateErr = errors.New("insert failed")

	_, err := env.messages.Send(ctx, alice, convID, "hi", "", nil)
	req.Error(err)
	req.Empty(env.store.Messages)
	req.Empty(env.store.Notifications)
}

func TestSendVisibilityChecks(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	mallory := env.store.AddUser("mallory")
	convID := env.addConversation(alice, bob)

	_, err := env.messages.Send(ctx, alice, uuid.New(), "hi", "", nil)
	req.ErrorIs(err, ErrConversationNotFound)

	_, err = env.messages.Send(ctx, mallory, convID, "hi", "", nil)
	req.ErrorIs(err, ErrNotParticipant)
}

func TestSendParentMustBelongToSameConversation(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)
	otherConv := env.addConversation(alice, bob)

	root, err := env.messages.Send(ctx, alice, convID, "root", "", nil)
	req.NoError(err)

	reply, err := env.messages.Send(ctx, bob, convID, "reply", "", &root.ID)
	req.NoError(err)
	req.Equal(root.ID, *reply.ParentID)

	_, err = env.messages.Send(ctx, bob, otherConv, "cross-thread", "", &root.ID)
	req.ErrorIs(err, ErrParentMismatch)

	missing := uuid.New()
	_, err = env.messages.Send(ctx, bob, convID, "orphan", "", &missing)
	req.ErrorIs(err, ErrParentNotFound)
}

func TestEditUnchangedBodyRecordsNothing(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "original", "", nil)
	req.NoError(err)

	same, err := env.messages.Edit(ctx, alice, msg.ID, "original")
	req.NoError(err)
	req.False(same.Edited)
	req.Empty(env.store.History)
}

func TestEditSnapshotsPriorBody(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "first", "", nil)
	req.NoError(err)

	edited, err := env.messages.Edit(ctx, alice, msg.ID, "second")
	req.NoError(err)
	req.True(edited.Edited)
	req.Equal("second", edited.Body)

	history, err := env.messages.History(ctx, alice, msg.ID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("first", history[0].OldBody)
	req.Equal(domain.MessageTypeText, history[0].OldType)
	req.Equal(alice, history[0].EditedBy)

	_, err = env.messages.Edit(ctx, alice, msg.ID, "third")
	req.NoError(err)

	history, err = env.messages.History(ctx, alice, msg.ID)
	req.NoError(err)
	req.Len(history, 2)
	req.Equal("second", history[0].OldBody)
	req.Equal("first", history[1].OldBody)
}

func TestEditDoesNotFanOut(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hi", "", nil)
	req.NoError(err)
	req.Len(env.store.Notifications, 1)

	_, err = env.messages.Edit(ctx, alice, msg.ID, "hi, edited")
	req.NoError(err)
	req.Len(env.store.Notifications, 1)

	_, err = env.messages.MarkRead(ctx, bob, msg.ID)
	req.NoError(err)
	req.Len(env.store.Notifications, 1)
}

func TestEditAuthorization(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hi", "", nil)
	req.NoError(err)

	_, err = env.messages.Edit(ctx, bob, msg.ID, "hijacked")
	req.ErrorIs(err, ErrNotMessageSender)

	_, err = env.messages.Edit(ctx, alice, uuid.New(), "gone")
	req.ErrorIs(err, ErrMessageNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hi", "", nil)
	req.NoError(err)

	changed, err := env.messages.MarkRead(ctx, bob, msg.ID)
	req.NoError(err)
	req.True(changed)

	changed, err = env.messages.MarkRead(ctx, bob, msg.ID)
	req.NoError(err)
	req.False(changed)
	req.True(env.store.Messages[msg.ID].Read)
}

func TestMarkReadOnlyByReceiver(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hi", "", nil)
	req.NoError(err)

	_, err = env.messages.MarkRead(ctx, alice, msg.ID)
	req.ErrorIs(err, ErrNotMessageReceiver)

	_, err = env.messages.MarkRead(ctx, bob, uuid.New())
	req.ErrorIs(err, ErrMessageNotFound)
}

func TestUnreadCountScenario(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	convID := env.addConversation(alice, bob)

	msg, err := env.messages.Send(ctx, alice, convID, "hello bob", "", nil)
	req.NoError(err)

	aliceUnread, err := env.messages.Unread(ctx, alice)
	req.NoError(err)
	req.Empty(aliceUnread)

	bobUnread, err := env.messages.Unread(ctx, bob)
	req.NoError(err)
	req.Len(bobUnread, 1)
	req.Equal(msg.ID, bobUnread[0].ID)

	_, err = env.messages.MarkRead(ctx, bob, msg.ID)
	req.NoError(err)

	bobUnread, err = env.messages.Unread(ctx, bob)
	req.NoError(err)
	req.Empty(bobUnread)
}
