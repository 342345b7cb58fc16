package service

import (
	"context"
	"strings"
	"testing"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionService_Request(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)
	banned := testutil.CreateProfile(t, env.db, "mallory", models.RoleGuest)
	require.NoError(t, env.profiles.SetBanned(ctx, banned.ID, true))

	tests := []struct {
		name    string
		invitee uint
		message string
		code    string
	}{
		{"self", alice.ID, "", models.CodeValidation},
		{"message too long", bob.ID, strings.Repeat("m", 501), models.CodeValidation},
		{"unknown invitee", 9999, "", models.CodeNotFound},
		{"banned invitee", banned.ID, "", models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.connection.Request(ctx, alice.ID, tt.invitee, tt.message)
			assertAppError(t, err, tt.code)
		})
	}

	conn, err := env.connection.Request(ctx, alice.ID, bob.ID, " Hiking buddies? ")
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPending, conn.Status)
	assert.Equal(t, "Hiking buddies?", conn.Message)

	change := env.events.lastChange(t)
	assert.Equal(t, TableConnections, change.Table)
	assert.Equal(t, ChangeInsert, change.Event)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, change.UserIDs)

	// A pending edge blocks a request in either direction.
	_, err = env.connection.Request(ctx, bob.ID, alice.ID, "")
	assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "already pending")

	_, err = env.connection.Accept(ctx, bob.ID, conn.ID)
	require.NoError(t, err)
	_, err = env.connection.Request(ctx, alice.ID, bob.ID, "")
	assertAppError(t, err, models.CodeConflict)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConnectionService_Respond(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)
	carol := testutil.CreateProfile(t, env.db, "carol", models.RoleGuest)

	t.Run("only invitee accepts", func(t *testing.T) {
		conn, err := env.connection.Request(ctx, alice.ID, bob.ID, "")
		require.NoError(t, err)

		_, err = env.connection.Accept(ctx, alice.ID, conn.ID)
		assertForbiddenError(t, err)
		_, err = env.connection.Accept(ctx, carol.ID, conn.ID)
		assertForbiddenError(t, err)

		accepted, err := env.connection.Accept(ctx, bob.ID, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ConnectionAccepted, accepted.Status)
		assert.Equal(t, ChangeUpdate, env.events.lastChange(t).Event)

		_, err = env.connection.Accept(ctx, bob.ID, conn.ID)
		assertAppError(t, err, models.CodeConflict)
	})

	t.Run("decline and cancel delete the request", func(t *testing.T) {
		conn, err := env.connection.Request(ctx, carol.ID, alice.ID, "")
		require.NoError(t, err)
		_, err = env.connection.Cancel(ctx, alice.ID, conn.ID)
		assertForbiddenError(t, err)
		_, err = env.connection.Decline(ctx, alice.ID, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, ChangeDelete, env.events.lastChange(t).Event)

		conn, err = env.connection.Request(ctx, carol.ID, alice.ID, "")
		require.NoError(t, err)
		_, err = env.connection.Cancel(ctx, carol.ID, conn.ID)
		require.NoError(t, err)

		sent, err := env.connection.Sent(ctx, carol.ID)
		require.NoError(t, err)
		assert.Empty(t, sent)
	})

	t.Run("remove needs an accepted edge", func(t *testing.T) {
		_, err := env.connection.Remove(ctx, alice.ID, carol.ID)
		assertAppError(t, err, models.CodeNotFound)

		_, err = env.connection.Remove(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		ids, err := env.connection.ConnectedIDs(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

// acceptingRepo accepts a request right after it is loaded, as a concurrent
// Accept would.
type acceptingRepo struct {
	repository.ConnectionRepository
}

func (r acceptingRepo) GetByID(ctx context.Context, id uint) (*models.Connection, error) {
	conn, err := r.ConnectionRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.UpdateStatus(ctx, id, models.ConnectionPending, models.ConnectionAccepted); err != nil {
		return nil, err
	}
	return conn, nil
}

func TestConnectionService_DeclineAfterConcurrentAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)

	for _, tc := range []struct {
		name string
		run  func(svc *ConnectionService, id uint) error
	}{
		{"decline", func(svc *ConnectionService, id uint) error { _, err := svc.Decline(ctx, bob.ID, id); return err }},
		{"cancel", func(svc *ConnectionService, id uint) error { _, err := svc.Cancel(ctx, alice.ID, id); return err }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := env.connection.Request(ctx, alice.ID, bob.ID, "")
			require.NoError(t, err)

			svc := NewConnectionService(acceptingRepo{env.connections}, env.profiles, nil)
			assertAppError(t, tc.run(svc, conn.ID), models.CodeConflict)

			stored, err := env.connections.GetByID(ctx, conn.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ConnectionAccepted, stored.Status)

			_, err = env.connection.Remove(ctx, alice.ID, bob.ID)
			require.NoError(t, err)
		})
	}
}

func TestConnectionService_Tribe(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := testutil.CreateProfile(t, env.db, "alice", models.RoleGuest)
	bob := testutil.CreateProfile(t, env.db, "bob", models.RoleGuest)
	carol := testutil.CreateProfile(t, env.db, "carol", models.RoleGuest)
	dave := testutil.CreateProfile(t, env.db, "dave", models.RoleGuest)
	erin := testutil.CreateProfile(t, env.db, "erin", models.RoleGuest)
	banned := testutil.CreateProfile(t, env.db, "mallory", models.RoleGuest)
	require.NoError(t, env.profiles.SetBanned(ctx, banned.ID, true))

	toBob, err := env.connection.Request(ctx, alice.ID, bob.ID, "")
	require.NoError(t, err)
	_, err = env.connection.Accept(ctx, bob.ID, toBob.ID)
	require.NoError(t, err)
	toCarol, err := env.connection.Request(ctx, alice.ID, carol.ID, "")
	require.NoError(t, err)
	fromDave, err := env.connection.Request(ctx, dave.ID, alice.ID, "")
	require.NoError(t, err)

	tribe, err := env.connection.Tribe(ctx, alice.ID)
	require.NoError(t, err)

	require.Len(t, tribe.Connected, 1)
	assert.Equal(t, "bob", tribe.Connected[0].Profile.Username)
	assert.Equal(t, toBob.ID, tribe.Connected[0].ConnectionID)

	require.Len(t, tribe.Unconnected, 3)
	byName := map[string]TribeMember{}
	for _, m := range tribe.Unconnected {
		byName[m.Profile.Username] = m
	}
	assert.True(t, byName["carol"].Pending)
	assert.Equal(t, toCarol.ID, byName["carol"].ConnectionID)
	require.NotNil(t, byName["dave"].IncomingRequestID)
	assert.Equal(t, fromDave.ID, *byName["dave"].IncomingRequestID)
	assert.Equal(t, erin.ID, byName["erin"].Profile.ID)
	assert.False(t, byName["erin"].Pending)
	assert.Zero(t, byName["erin"].ConnectionID)
	assert.NotContains(t, byName, "mallory")
}
