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

func titlesOf(rows []models.Accommodation) []string {
	out := make([]string, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.Title)
	}
	return out
}

func TestAccommodationRepository_Browse(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccommodationRepository(db)
	ctx := context.Background()

	host := testutil.CreateProfile(t, db, "hostess", models.RoleHost)
	cheap := testutil.CreateAccommodation(t, db, host.ID, "Pine Cabin", 90, true)
	mid := testutil.CreateAccommodation(t, db, host.ID, "Lakeside 100% Yurt", 150, true)
	pricey := testutil.CreateAccommodation(t, db, host.ID, "Glass Treehouse", 320, true)
	testutil.CreateAccommodation(t, db, host.ID, "Draft Dome", 200, false)

	now := time.Now()
	testutil.Backdate(t, db, &models.Accommodation{}, cheap.ID, now.Add(-3*time.Hour))
	testutil.Backdate(t, db, &models.Accommodation{}, mid.ID, now.Add(-2*time.Hour))
	testutil.Backdate(t, db, &models.Accommodation{}, pricey.ID, now.Add(-1*time.Hour))

	minPrice, maxPrice := 100.0, 300.0

	tests := []struct {
		name   string
		filter ListingFilter
		want   []string
	}{
		{"newest first", ListingFilter{PublishedOnly: true}, []string{"Glass Treehouse", "Lakeside 100% Yurt", "Pine Cabin"}},
		{"price ascending", ListingFilter{PublishedOnly: true, Sort: SortPriceAsc}, []string{"Pine Cabin", "Lakeside 100% Yurt", "Glass Treehouse"}},
		{"price descending", ListingFilter{PublishedOnly: true, Sort: SortPriceDesc}, []string{"Glass Treehouse", "Lakeside 100% Yurt", "Pine Cabin"}},
		{"price window", ListingFilter{PublishedOnly: true, MinPrice: &minPrice, MaxPrice: &maxPrice}, []string{"Lakeside 100% Yurt"}},
		{"query case insensitive", ListingFilter{PublishedOnly: true, Query: "TREEHOUSE"}, []string{"Glass Treehouse"}},
		{"percent is literal", ListingFilter{PublishedOnly: true, Query: "100%"}, []string{"Lakeside 100% Yurt"}},
		{"guests above capacity", ListingFilter{PublishedOnly: true, Guests: 5}, []string{}},
		{"property type", ListingFilter{PublishedOnly: true, Kind: "Cabin"}, []string{"Glass Treehouse", "Lakeside 100% Yurt", "Pine Cabin"}},
		{"owner sees drafts", ListingFilter{HostID: host.ID, Sort: SortPriceAsc}, []string{"Pine Cabin", "Lakeside 100% Yurt", "Draft Dome", "Glass Treehouse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := repo.Browse(ctx, tt.filter, 20, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titlesOf(rows))
		})
	}

	t.Run("pagination", func(t *testing.T) {
		rows, err := repo.Browse(ctx, ListingFilter{PublishedOnly: true}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"Lakeside 100% Yurt"}, titlesOf(rows))
	})
}

func TestAccommodationRepository_Lifecycle(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewAccommodationRepository(db)
	ctx := context.Background()

	host := testutil.CreateProfile(t, db, "hostess", models.RoleHost)
	a := &models.Accommodation{
		HostID:        host.ID,
		Title:         "Moss Hut",
		Location:      "Olympic Peninsula",
		PricePerNight: 80,
		MaxGuests:     2,
		ImageURLs:     []string{"http://localhost/storage/accommodations/1/x.webp"},
	}
	require.NoError(t, repo.Create(ctx, a))
	require.NotZero(t, a.ID)

	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Host)
	assert.Equal(t, "hostess", got.Host.Username)
	assert.False(t, got.IsPublished)

	got.Title = "Moss Hut Deluxe"
	require.NoError(t, repo.Update(ctx, got))

	require.NoError(t, repo.SetPublished(ctx, a.ID, true))
	got, err = repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Moss Hut Deluxe", got.Title)
	assert.True(t, got.IsPublished)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, ListingCounts{Total: 1, Published: 1}, *counts)

	summaries, err := repo.Summaries(ctx, []uint{a.ID})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 80.0, summaries[0].Price)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.GetByID(ctx, a.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.Delete(ctx, a.ID)))
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(repo.SetPublished(ctx, a.ID, false)))
}

func TestExperienceRepository_BrowseByCategory(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewExperienceRepository(db)
	ctx := context.Background()

	host := testutil.CreateProfile(t, db, "guide", models.RoleHost)
	testutil.CreateExperience(t, db, host.ID, "Ridge Walk", 45, true)
	kayak := testutil.CreateExperience(t, db, host.ID, "Sea Kayak", 120, true)
	require.NoError(t, db.Model(kayak).Update("category", "water").Error)

	rows, err := repo.Browse(ctx, ListingFilter{PublishedOnly: true, Kind: "water"}, 20, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sea Kayak", rows[0].Title)

	rows, err = repo.Browse(ctx, ListingFilter{PublishedOnly: true, Location: "big sur"}, 20, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
