package repository

import (
	"context"
	"testing"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewConnectionRepository(db)
	ctx := context.Background()

	alice := testutil.CreateProfile(t, db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, db, "bob", models.RoleGuest)
	carol := testutil.CreateProfile(t, db, "carol", models.RoleGuest)

	ab := &models.Connection{InviterID: alice.ID, InviteeID: bob.ID, Status: models.ConnectionPending, Message: "hi"}
	require.NoError(t, repo.Create(ctx, ab))

	t.Run("same direction duplicate", func(t *testing.T) {
		err := repo.Create(ctx, &models.Connection{InviterID: alice.ID, InviteeID: bob.ID, Status: models.ConnectionPending})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("between finds either direction", func(t *testing.T) {
		c, err := repo.Between(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, ab.ID, c.ID)

		c, err = repo.Between(ctx, alice.ID, carol.ID)
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("incoming and sent", func(t *testing.T) {
		in, err := repo.Incoming(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, in, 1)
		require.NotNil(t, in[0].Inviter)
		assert.Equal(t, "alice", in[0].Inviter.Username)

		sent, err := repo.Sent(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, sent, 1)

		sent, err = repo.Sent(ctx, bob.ID)
		require.NoError(t, err)
		assert.Empty(t, sent)
	})

	t.Run("status transition is conditional", func(t *testing.T) {
		require.NoError(t, repo.UpdateStatus(ctx, ab.ID, models.ConnectionPending, models.ConnectionAccepted))

		err := repo.UpdateStatus(ctx, ab.ID, models.ConnectionPending, models.ConnectionAccepted)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

		accepted, err := repo.Accepted(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, accepted, 1)
		assert.Equal(t, models.ConnectionAccepted, accepted[0].Status)

		n, err := repo.CountAccepted(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("for profile and delete", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, &models.Connection{InviterID: carol.ID, InviteeID: alice.ID, Status: models.ConnectionPending}))

		all, err := repo.ForProfile(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		err = repo.Delete(ctx, ab.ID, models.ConnectionPending)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err), "accepted row is not deleted as pending")
		_, err = repo.GetByID(ctx, ab.ID)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, ab.ID, models.ConnectionAccepted))
		_, err = repo.GetByID(ctx, ab.ID)
		assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	})
}
