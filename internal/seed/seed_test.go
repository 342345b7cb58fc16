package seed

import (
	"context"
	"testing"
	"time"

	"resort/internal/models"
	"resort/internal/testutil"
	"resort/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestFactory_Deterministic(t *testing.T) {
	a := NewFactory(7, nil)
	b := NewFactory(7, nil)

	assert.Equal(t, a.Username(1), b.Username(1))
	assert.Equal(t, a.Accommodation(1).Title, b.Accommodation(1).Title)
	assert.Equal(t, a.Experience(1).Price, b.Experience(1).Price)
}

func TestFactory_ProducesValidInput(t *testing.T) {
	f := NewFactory(99, []string{"Lake Tahoe, CA"})

	for i := 1; i <= 25; i++ {
		require.NoError(t, validation.ValidateUsername(f.Username(i)))

		a := f.Accommodation(1)
		assert.Equal(t, "Lake Tahoe, CA", a.Location)
		require.NoError(t, validation.ValidateAccommodation(validation.AccommodationFields{
			Title:         a.Title,
			Description:   a.Description,
			Location:      a.Location,
			PricePerNight: a.PricePerNight,
			MaxGuests:     a.MaxGuests,
			Bedrooms:      a.Bedrooms,
			Bathrooms:     a.Bathrooms,
			ImageURLs:     a.ImageURLs,
		}))

		e := f.Experience(1)
		require.NoError(t, validation.ValidateExperience(validation.ExperienceFields{
			Title:           e.Title,
			Description:     e.Description,
			Location:        e.Location,
			Price:           e.Price,
			DurationHours:   e.DurationHours,
			MaxParticipants: e.MaxParticipants,
			ImageURLs:       e.ImageURLs,
		}))

		app := f.HostApplication(1)
		require.NoError(t, validation.ValidateHostApplication(validation.HostApplicationFields{
			BusinessName: app.BusinessName,
			ListingType:  app.ListingType,
			Location:     app.Location,
			About:        app.About,
			Experience:   app.Experience,
			Phone:        app.Phone,
		}))

		ev := f.EngagementEvent(nil, models.ListingRef{Type: models.ContentExperience, ID: 3}, 10)
		assert.True(t, ev.EventType.Valid())
		assert.WithinDuration(t, f.now, ev.CreatedAt, 10*24*time.Hour)
	}
}

func TestParsePreset(t *testing.T) {
	base := DefaultOptions()

	opts, err := ParsePreset([]byte(`
profiles: 5
locations: ["Sedona, AZ"]
accounts:
  - {username: ranger, email: Ranger@Example.com, role: admin}
`), base)
	require.NoError(t, err)
	assert.Equal(t, 5, opts.Profiles)
	assert.Equal(t, base.Hosts, opts.Hosts)
	assert.Equal(t, base.Password, opts.Password)
	assert.Equal(t, []string{"Sedona, AZ"}, opts.Locations)
	require.Len(t, opts.Accounts, 1)
	assert.Equal(t, models.RoleAdmin, opts.Accounts[0].Role)

	_, err = ParsePreset([]byte(`accounts: [{username: x, role: superuser}]`), base)
	assert.Error(t, err)

	_, err = ParsePreset([]byte(`profiles: [nope`), base)
	assert.Error(t, err)
}

func TestSeederRun(t *testing.T) {
	db := testutil.NewTestDB(t)
	opts := Options{
		Profiles: 6,
		Hosts:    2,
		Listings: 6,
		Seed:     3,
		Password: "Password123",
		Fast:     true,
		Accounts: []Account{{Username: "ranger", Email: "Ranger@Example.com", Role: models.RoleAdmin}},
	}

	sum, err := NewSeeder(db, opts).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9, sum.Profiles)
	assert.Equal(t, 3, sum.Accommodations)
	assert.Equal(t, 3, sum.Experiences)

	count := func(model any) int {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		return int(n)
	}
	assert.Equal(t, sum.Profiles, count(&models.Profile{}))
	assert.Equal(t, sum.Profiles, count(&models.User{}))
	assert.Equal(t, sum.Connections, count(&models.Connection{}))
	assert.Equal(t, sum.Messages, count(&models.Message{}))
	assert.Equal(t, sum.Favorites, count(&models.Favorite{}))
	assert.Equal(t, sum.Comments, count(&models.Comment{}))
	assert.Equal(t, sum.Events, count(&models.EngagementEvent{}))
	assert.Equal(t, sum.HostApplications, count(&models.HostApplication{}))

	t.Run("fixed accounts can log in", func(t *testing.T) {
		var user models.User
		require.NoError(t, db.Where("email = ?", "ranger@example.com").First(&user).Error)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("Password123")))

		var p models.Profile
		require.NoError(t, db.First(&p, user.ID).Error)
		assert.Equal(t, "ranger", p.Username)
		assert.Equal(t, models.RoleAdmin, p.Role)
	})

	t.Run("listings belong to hosts", func(t *testing.T) {
		var hostIDs []uint
		require.NoError(t, db.Model(&models.Accommodation{}).Distinct().Pluck("host_id", &hostIDs).Error)
		for _, id := range hostIDs {
			var p models.Profile
			require.NoError(t, db.First(&p, id).Error)
			assert.Equal(t, models.RoleHost, p.Role)
		}
	})

	t.Run("engagement only targets published listings", func(t *testing.T) {
		var events []models.EngagementEvent
		require.NoError(t, db.Find(&events).Error)
		for _, ev := range events {
			if ev.ContentType == models.ContentAccommodation {
				var a models.Accommodation
				require.NoError(t, db.First(&a, ev.ContentID).Error)
				assert.True(t, a.IsPublished)
			}
		}
	})
}

func TestSeederRun_ListingsNeedHost(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, err := NewSeeder(db, Options{Profiles: 2, Listings: 1, Fast: true}).Run(context.Background())
	assert.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Profile{}).Count(&n).Error)
	assert.Zero(t, n, "failed run rolls back")
}
