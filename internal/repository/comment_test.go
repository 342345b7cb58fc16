package repository

import (
	"context"
	"testing"

	"resort/internal/models"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	host := testutil.CreateProfile(t, db, "host", models.RoleHost)
	guest := testutil.CreateProfile(t, db, "guest", models.RoleGuest)
	cabin := testutil.CreateAccommodation(t, db, host.ID, "Pine Cabin", 90, true)
	ref := models.ListingRef{Type: models.ContentAccommodation, ID: cabin.ID}

	first := &models.Comment{ProfileID: guest.ID, ContentType: ref.Type, ContentID: ref.ID, Body: "Lovely stay"}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, &models.Comment{ProfileID: host.ID, ContentType: ref.Type, ContentID: ref.ID, Body: "Thanks!"}))
	require.NoError(t, repo.Create(ctx, &models.Comment{ProfileID: guest.ID, ContentType: models.ContentExperience, ContentID: cabin.ID, Body: "Other listing"}))

	comments, err := repo.ListByListing(ctx, ref)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Lovely stay", comments[0].Body)
	require.NotNil(t, comments[0].Profile)
	assert.Equal(t, "guest", comments[0].Profile.Username)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, guest.ID, got.ProfileID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, first.ID)))

	require.NoError(t, repo.DeleteByListing(ctx, ref))
	comments, err = repo.ListByListing(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, comments)

	comments, err = repo.ListByListing(ctx, models.ListingRef{Type: models.ContentExperience, ID: cabin.ID})
	require.NoError(t, err)
	assert.Len(t, comments, 1)
}

func TestFavoriteRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewFavoriteRepository(db)
	ctx := context.Background()

	guest := testutil.CreateProfile(t, db, "guest", models.RoleGuest)
	ref := models.ListingRef{Type: models.ContentExperience, ID: 42}

	created, err := repo.Add(ctx, &models.Favorite{ProfileID: guest.ID, ContentType: ref.Type, ContentID: ref.ID})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Add(ctx, &models.Favorite{ProfileID: guest.ID, ContentType: ref.Type, ContentID: ref.ID})
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := repo.Exists(ctx, guest.ID, ref)
	require.NoError(t, err)
	assert.True(t, exists)

	favs, err := repo.ListByProfile(ctx, guest.ID)
	require.NoError(t, err)
	assert.Len(t, favs, 1)

	require.NoError(t, repo.Remove(ctx, guest.ID, ref))
	require.NoError(t, repo.Remove(ctx, guest.ID, ref))

	exists, err = repo.Exists(ctx, guest.ID, ref)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.Add(ctx, &models.Favorite{ProfileID: guest.ID, ContentType: ref.Type, ContentID: ref.ID})
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByListing(ctx, ref))
	favs, err = repo.ListByProfile(ctx, guest.ID)
	require.NoError(t, err)
	assert.Empty(t, favs)
}
