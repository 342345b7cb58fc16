package repository

import (
	"context"
	"testing"
	"time"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	alice := testutil.CreateProfile(t, db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, db, "bob", models.RoleGuest)
	carol := testutil.CreateProfile(t, db, "carol", models.RoleGuest)

	send := func(from, to uint, content string) *models.Message {
		msg := &models.Message{SenderID: from, RecipientID: to, Content: content}
		require.NoError(t, repo.Create(ctx, msg))
		return msg
	}

	send(alice.ID, bob.ID, "one")
	send(bob.ID, alice.ID, "two")
	send(alice.ID, bob.ID, "three")
	send(carol.ID, alice.ID, "hello from carol")
	last := send(carol.ID, bob.ID, "carol to bob")

	t.Run("thread ascending and scoped to the pair", func(t *testing.T) {
		msgs, err := repo.Thread(ctx, alice.ID, bob.ID, 0, 0)
		require.NoError(t, err)
		var contents []string
		for _, m := range msgs {
			contents = append(contents, m.Content)
		}
		assert.Equal(t, []string{"one", "two", "three"}, contents)
	})

	t.Run("thread offset skips newest", func(t *testing.T) {
		msgs, err := repo.Thread(ctx, bob.ID, alice.ID, 2, 1)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "one", msgs[0].Content)
		assert.Equal(t, "two", msgs[1].Content)
	})

	t.Run("unread counts", func(t *testing.T) {
		n, err := repo.UnreadCount(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 3, n)

		bySender, err := repo.UnreadBySender(ctx, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, map[uint]int64{alice.ID: 2, carol.ID: 1}, bySender)
	})

	t.Run("mark read only touches one sender", func(t *testing.T) {
		updated, err := repo.MarkRead(ctx, bob.ID, alice.ID, time.Now())
		require.NoError(t, err)
		assert.EqualValues(t, 2, updated)

		updated, err = repo.MarkRead(ctx, bob.ID, alice.ID, time.Now())
		require.NoError(t, err)
		assert.Zero(t, updated)

		n, err := repo.UnreadCount(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("latest per counterpart", func(t *testing.T) {
		msgs, err := repo.LatestPerCounterpart(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, last.ID, msgs[0].ID)
		assert.Equal(t, "three", msgs[1].Content)
	})

	t.Run("count since", func(t *testing.T) {
		n, err := repo.CountSince(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.EqualValues(t, 5, n)
	})

	t.Run("get by id", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})
}
