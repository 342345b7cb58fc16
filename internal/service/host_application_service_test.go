package service

import (
	"context"
	"testing"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validApplication() HostApplicationInput {
	return HostApplicationInput{
		BusinessName: "Pinecone Retreats",
		ListingType:  " Both ",
		Location:     "Bend, OR",
		About:        "Three cabins and guided forest walks.",
		Phone:        "+1 541 555 0100",
	}
}

func TestHostApplicationService_Submit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guest := testutil.CreateProfile(t, env.db, "juniper", models.RoleGuest)
	host := testutil.CreateProfile(t, env.db, "cedar", models.RoleHost)

	_, err := env.application.Submit(ctx, actorFor(host), validApplication())
	assertAppError(t, err, models.CodeConflict)

	bad := validApplication()
	bad.ListingType = "castle"
	bad.About = ""
	_, err = env.application.Submit(ctx, actorFor(guest), bad)
	assertValidationError(t, err)

	app, err := env.application.Submit(ctx, actorFor(guest), validApplication())
	require.NoError(t, err)
	assert.Equal(t, models.HostApplicationPending, app.Status)
	assert.Equal(t, "both", app.ListingType)

	_, err = env.application.Submit(ctx, actorFor(guest), validApplication())
	assertAppError(t, err, models.CodeExistingApplication)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	existing, ok := appErr.Details.(*models.HostApplication)
	require.True(t, ok)
	assert.Equal(t, app.ID, existing.ID)

	mine, err := env.application.GetMine(ctx, guest.ID)
	require.NoError(t, err)
	assert.Equal(t, app.ID, mine.ID)

	_, err = env.application.GetMine(ctx, host.ID)
	assertAppError(t, err, models.CodeNotFound)
}

func TestHostApplicationService_Review(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.CreateProfile(t, env.db, "ranger", models.RoleAdmin)
	approved := testutil.CreateProfile(t, env.db, "juniper", models.RoleGuest)
	declined := testutil.CreateProfile(t, env.db, "sage", models.RoleGuest)

	first, err := env.application.Submit(ctx, actorFor(approved), validApplication())
	require.NoError(t, err)
	second, err := env.application.Submit(ctx, actorFor(declined), validApplication())
	require.NoError(t, err)

	t.Run("admins only", func(t *testing.T) {
		_, err := env.application.Approve(ctx, actorFor(approved), first.ID, "")
		assertForbiddenError(t, err)
		_, _, err = env.application.List(ctx, actorFor(approved), "", 20, 0)
		assertForbiddenError(t, err)
	})

	t.Run("list filters by status", func(t *testing.T) {
		apps, total, err := env.application.List(ctx, actorFor(admin), models.HostApplicationPending, 20, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, apps, 2)

		_, _, err = env.application.List(ctx, actorFor(admin), "archived", 20, 0)
		assertValidationError(t, err)
	})

	t.Run("approve promotes to host", func(t *testing.T) {
		app, err := env.application.Approve(ctx, actorFor(admin), first.ID, "Welcome aboard")
		require.NoError(t, err)
		assert.Equal(t, models.HostApplicationApproved, app.Status)
		require.NotNil(t, app.ReviewedByID)
		assert.Equal(t, admin.ID, *app.ReviewedByID)

		profile, err := env.profiles.GetByID(ctx, approved.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleHost, profile.Role)

		require.NotEmpty(t, env.events.userEvents)
		event := env.events.userEvents[len(env.events.userEvents)-1]
		assert.Equal(t, approved.ID, event.UserID)
		assert.Equal(t, EventHostApplicationReviewed, event.Type)

		_, err = env.application.Approve(ctx, actorFor(admin), first.ID, "")
		assertAppError(t, err, models.CodeConflict)
	})

	t.Run("decline requires notes and keeps role", func(t *testing.T) {
		_, err := env.application.Decline(ctx, actorFor(admin), second.ID, "  ")
		assertValidationError(t, err)

		app, err := env.application.Decline(ctx, actorFor(admin), second.ID, "Please add photos")
		require.NoError(t, err)
		assert.Equal(t, models.HostApplicationDeclined, app.Status)
		assert.Equal(t, "Please add photos", app.AdminNotes)

		profile, err := env.profiles.GetByID(ctx, declined.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleGuest, profile.Role)
	})

	t.Run("unknown application", func(t *testing.T) {
		_, err := env.application.Approve(ctx, actorFor(admin), 9999, "")
		assertAppError(t, err, models.CodeNotFound)
	})

	assert.ElementsMatch(t, []string{
		models.AuditHostApplicationApprove,
		models.AuditHostApplicationDecline,
	}, env.auditActions(t))
}
