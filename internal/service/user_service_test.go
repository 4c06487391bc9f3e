package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteUserCascades(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")
	bob := env.store.AddUser("bob")
	carol := env.store.AddUser("carol")
	convID := env.addConversation(alice, bob)
	otherConv := env.addConversation(bob, carol)

	// Traffic in both directions plus an edit, so history exists.
	aliceMsg, err := env.messages.Send(ctx, alice, convID, "from alice", "", nil)
	req.NoError(err)
	_, err = env.messages.Send(ctx, bob, convID, "from bob", "", nil)
	req.NoError(err)
	_, err = env.messages.Edit(ctx, alice, aliceMsg.ID, "from alice, edited")
	req.NoError(err)

	// Unrelated traffic that must survive.
	survivor, err := env.messages.Send(ctx, bob, otherConv, "bob to carol", "", nil)
	req.NoError(err)

	result, err := env.users.Delete(ctx, alice)
	req.NoError(err)
	req.EqualValues(2, result.Messages)
	req.EqualValues(1, result.History)

	// No message with alice as sender or receiver remains.
	for _, m := range env.store.Messages {
		req.NotEqual(alice, m.SenderID)
		if m.ReceiverID != nil {
			req.NotEqual(alice, *m.ReceiverID)
		}
	}

	// No notification targets alice; bob's notification about alice's
	// message died with the message.
	for _, n := range env.store.Notifications {
		req.NotEqual(alice, n.UserID)
		if n.MessageID != nil {
			req.Equal(survivor.ID, *n.MessageID)
		}
	}

	// No history row references a deleted message.
	req.Empty(env.store.History)

	// No conversation lists alice as a participant.
	for _, c := range env.store.Conversations {
		req.False(c.IsParticipant(alice))
	}

	_, ok := env.store.Users[alice]
	req.False(ok)

	// Deleting again is a no-op, not an error.
	result, err = env.users.Delete(ctx, alice)
	req.NoError(err)
	req.EqualValues(0, result.Messages)
	req.EqualValues(0, result.Notifications)
	req.EqualValues(0, result.History)
}

func TestGetUser(t *testing.T) {
	req := require.New(t)
	env := newTestEnv()
	ctx := context.Background()

	alice := env.store.AddUser("alice")

	user, err := env.users.Get(ctx, alice)
	req.NoError(err)
	req.Equal("alice", user.Username)

	delete(env.store.Users, alice)
	_, err = env.users.Get(ctx, alice)
	req.ErrorIs(err, ErrUserNotFound)
}
