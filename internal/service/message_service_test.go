package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Send(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)
	banned := testutil.CreateProfile(t, env.db, "mallory", models.RoleGuest)
	require.NoError(t, env.profiles.SetBanned(ctx, banned.ID, true))

	tests := []struct {
		name      string
		recipient uint
		content   string
		image     string
		code      string
	}{
		{"self", alice.ID, "hi", "", models.CodeValidation},
		{"empty", bob.ID, "   ", "", models.CodeValidation},
		{"too long", bob.ID, strings.Repeat("x", 4001), "", models.CodeValidation},
		{"bad image url", bob.ID, "", "javascript:alert(1)", models.CodeValidation},
		{"unknown recipient", 9999, "hi", "", models.CodeNotFound},
		{"banned recipient", banned.ID, "hi", "", models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.message.Send(ctx, alice.ID, tt.recipient, tt.content, tt.image)
			assertAppError(t, err, tt.code)
		})
	}

	msg, err := env.message.Send(ctx, alice.ID, bob.ID, "", "https://cdn.example.com/messages/1/x.webp")
	require.NoError(t, err)
	assert.False(t, msg.IsRead)
	assert.Empty(t, msg.Content)

	change := env.events.lastChange(t)
	assert.Equal(t, TableMessages, change.Table)
	assert.Equal(t, ChangeInsert, change.Event)
	assert.Equal(t, []uint{alice.ID, bob.ID}, change.UserIDs)
}

func TestMessageService_MarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)

	for _, body := range []string{"one", "two"} {
		_, err := env.message.Send(ctx, alice.ID, bob.ID, body, "")
		require.NoError(t, err)
	}
	_, err := env.message.Send(ctx, bob.ID, alice.ID, "reply", "")
	require.NoError(t, err)

	unread, err := env.message.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	env.message.now = func() time.Time { return fixed }

	n, err := env.message.MarkRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	change := env.events.lastChange(t)
	assert.Equal(t, ChangeUpdate, change.Event)
	receipt, ok := change.Record.(ReadReceipt)
	require.True(t, ok)
	assert.Equal(t, ReadReceipt{RecipientID: bob.ID, SenderID: alice.ID, Count: 2, ReadAt: fixed}, receipt)

	published := len(env.events.changes)
	n, err = env.message.MarkRead(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, env.events.changes, published, "no event when nothing changed")

	// Alice's unread reply is untouched.
	unread, err = env.message.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestMessageService_Contacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)
	carol := testutil.CreateProfile(t, env.db, "carol", models.RoleGuest)
	dave := testutil.CreateProfile(t, env.db, "dave", models.RoleGuest)

	// bob: connected, no messages. carol: messaged, not connected.
	conn, err := env.connection.Request(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = env.connection.Accept(ctx, bob.ID, conn.ID)
	require.NoError(t, err)
	require.NoError(t, env.db.Model(&models.Connection{}).Where("id = ?", conn.ID).
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour)).Error)

	_, err = env.message.Send(ctx, carol.ID, alice.ID, "Are you coming to the retreat?", "")
	require.NoError(t, err)

	contacts, err := env.message.Contacts(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	assert.Equal(t, "carol", contacts[0].Profile.Username)
	assert.False(t, contacts[0].Connected)
	assert.Equal(t, int64(1), contacts[0].UnreadCount)
	require.NotNil(t, contacts[0].LastMessage)
	assert.Equal(t, "Are you coming to the retreat?", contacts[0].LastMessage.Content)

	assert.Equal(t, "bob", contacts[1].Profile.Username)
	assert.True(t, contacts[1].Connected)
	assert.Nil(t, contacts[1].LastMessage)

	require.NoError(t, env.profiles.SetBanned(ctx, carol.ID, true))
	contacts, err = env.message.Contacts(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "bob", contacts[0].Profile.Username)

	_, err = env.message.Thread(ctx, alice.ID, 9999, 50, 0)
	assertAppError(t, err, models.CodeNotFound)
	thread, err := env.message.Thread(ctx, alice.ID, dave.ID, 50, 0)
	require.NoError(t, err)
	assert.NotNil(t, thread)
	assert.Empty(t, thread)
}
