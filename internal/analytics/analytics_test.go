package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"resort/internal/featureflags"
	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, 3, 12, 15, 30, 0, 0, time.UTC) // a Thursday

func uintPtr(v uint) *uint { return &v }

func TestStartOfWeek(t *testing.T) {
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfWeek(fixedNow))
	sunday := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), startOfWeek(sunday))
	monday := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, monday, startOfWeek(monday))
}

func TestBucketDays(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	events := []repository.EventStamp{
		{EventType: models.EngagementView, CreatedAt: start.Add(time.Hour)},
		{EventType: models.EngagementView, CreatedAt: start.Add(2 * time.Hour)},
		{EventType: models.EngagementFavorite, CreatedAt: start.Add(26 * time.Hour)},
		{EventType: models.EngagementInquiry, CreatedAt: start.Add(50 * time.Hour)},
		{EventType: models.EngagementView, CreatedAt: start.Add(-time.Minute)},
		{EventType: models.EngagementShare, CreatedAt: start.Add(72 * time.Hour)},
	}

	rows := bucketDays(events, start, 3)
	require.Len(t, rows, 3)
	assert.Equal(t, DayEngagement{Date: "2026-03-10", Views: 2, Total: 2}, rows[0])
	assert.Equal(t, DayEngagement{Date: "2026-03-11", Favorites: 1, Total: 1}, rows[1])
	assert.Equal(t, DayEngagement{Date: "2026-03-12", Inquiries: 1, Total: 1}, rows[2])

	empty := bucketDays(nil, start, 2)
	assert.Equal(t, []DayEngagement{{Date: "2026-03-10"}, {Date: "2026-03-11"}}, empty)
}

func TestCohorts(t *testing.T) {
	start := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	signups := []repository.SignupStamp{
		{ID: 1, CreatedAt: start.Add(time.Hour)},
		{ID: 2, CreatedAt: start.Add(3 * 24 * time.Hour)},
		{ID: 3, CreatedAt: start.Add(8 * 24 * time.Hour)},
	}
	events := []repository.EventStamp{
		{ProfileID: uintPtr(1), EventType: models.EngagementView, CreatedAt: start.Add(2 * time.Hour)},
		{ProfileID: uintPtr(1), EventType: models.EngagementView, CreatedAt: start.Add(9 * 24 * time.Hour)},
		{ProfileID: uintPtr(2), EventType: models.EngagementView, CreatedAt: start.Add(15 * 24 * time.Hour)},
		{ProfileID: uintPtr(3), EventType: models.EngagementView, CreatedAt: start.Add(8 * 24 * time.Hour)},
		{ProfileID: nil, EventType: models.EngagementView, CreatedAt: start.Add(time.Hour)},
	}

	got := cohorts(signups, events, start, 3)
	require.Len(t, got, 3)

	assert.Equal(t, "2026-02-23", got[0].Week)
	assert.Equal(t, 2, got[0].Size)
	assert.Equal(t, []float64{0.5, 0.5, 0.5}, got[0].Retention)

	assert.Equal(t, "2026-03-02", got[1].Week)
	assert.Equal(t, 1, got[1].Size)
	assert.Equal(t, []float64{1, 0}, got[1].Retention)

	assert.Equal(t, 0, got[2].Size)
	assert.Equal(t, []float64{0}, got[2].Retention)
}

func newTestService(t *testing.T, flags string) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	svc := NewService(Repos{
		Engagement:     repository.NewEngagementRepository(db),
		Accommodations: repository.NewAccommodationRepository(db),
		Experiences:    repository.NewExperienceRepository(db),
	}, featureflags.NewManager(flags), time.Minute)
	svc.now = func() time.Time { return fixedNow }
	return svc, db
}

func recordEvent(t *testing.T, db *gorm.DB, kind models.ContentType, id uint, eventType models.EngagementType, at time.Time) {
	t.Helper()
	e := &models.EngagementEvent{ContentType: kind, ContentID: id, EventType: eventType}
	require.NoError(t, db.Create(e).Error)
	testutil.Backdate(t, db, &models.EngagementEvent{}, e.ID, at)
}

func TestService_LiveAggregations(t *testing.T) {
	svc, db := newTestService(t, "")
	ctx := context.Background()
	host := testutil.CreateProfile(t, db, "cedar", models.RoleHost)
	testutil.Backdate(t, db, &models.Profile{}, host.ID, fixedNow.Add(-2*time.Hour))
	stay := testutil.CreateAccommodation(t, db, host.ID, "Moss Cabin", 100, true)
	tour := testutil.CreateExperience(t, db, host.ID, "Owl Walk", 30, true)

	recent := fixedNow.Add(-time.Hour)
	recordEvent(t, db, models.ContentAccommodation, stay.ID, models.EngagementView, recent)
	recordEvent(t, db, models.ContentAccommodation, stay.ID, models.EngagementFavorite, recent)
	recordEvent(t, db, models.ContentExperience, tour.ID, models.EngagementView, recent)
	recordEvent(t, db, models.ContentExperience, 999, models.EngagementInquiry, recent)
	recordEvent(t, db, models.ContentExperience, tour.ID, models.EngagementShare, fixedNow.AddDate(0, 0, -30))

	res, err := svc.Trending(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	items, ok := res.Data.([]TrendingItem)
	require.True(t, ok)
	require.Len(t, items, 2, "events for deleted listings are dropped")
	assert.Equal(t, "Moss Cabin", items[0].Title)
	assert.Equal(t, int64(4), items[0].Score)
	assert.Equal(t, "Owl Walk", items[1].Title)

	res, err = svc.RecentEngagement(ctx, 3)
	require.NoError(t, err)
	days, ok := res.Data.([]DayEngagement)
	require.True(t, ok)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-03-12", days[2].Date)
	assert.Equal(t, int64(4), days[2].Total)
	assert.Zero(t, days[0].Total)

	res, err = svc.ContentAnalytics(ctx)
	require.NoError(t, err)
	stats, ok := res.Data.([]ContentStats)
	require.True(t, ok)
	require.Len(t, stats, 2)
	assert.Equal(t, ContentStats{
		ContentType: models.ContentAccommodation, Total: 1, Published: 1, Views: 1, Favorites: 1, AveragePrice: 100,
	}, stats[0])
	assert.Equal(t, int64(1), stats[1].Shares)
	assert.Equal(t, int64(1), stats[1].Inquiries)

	res, err = svc.Retention(ctx, 4)
	require.NoError(t, err)
	cohortRows, ok := res.Data.([]Cohort)
	require.True(t, ok)
	require.Len(t, cohortRows, 4)
	assert.Equal(t, 1, cohortRows[3].Size)
}

func TestService_EmptyLiveIsEmptySlice(t *testing.T) {
	svc, _ := newTestService(t, "")
	res, err := svc.Trending(context.Background(), 7, 10)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, res.Source)
	assert.Equal(t, []TrendingItem{}, res.Data)
}

// failingEngagement fails every aggregation.
type failingEngagement struct {
	repository.EngagementRepository
}

var errAggregation = errors.New("relation engagement_events does not exist")

func (failingEngagement) Trending(context.Context, time.Time, int) ([]repository.TrendingRow, error) {
	return nil, errAggregation
}
func (failingEngagement) EventsSince(context.Context, time.Time) ([]repository.EventStamp, error) {
	return nil, errAggregation
}
func (failingEngagement) CountsByContentType(context.Context) ([]repository.ContentTypeEngagement, error) {
	return nil, errAggregation
}
func (failingEngagement) SignupsSince(context.Context, time.Time) ([]repository.SignupStamp, error) {
	return nil, errAggregation
}

func TestService_Fallback(t *testing.T) {
	ctx := context.Background()
	newFailing := func(flags string) *Service {
		svc := NewService(Repos{Engagement: failingEngagement{}}, featureflags.NewManager(flags), time.Minute)
		svc.now = func() time.Time { return fixedNow }
		return svc
	}

	t.Run("flag on serves deterministic data", func(t *testing.T) {
		svc := newFailing("")
		first, err := svc.Trending(ctx, 7, 5)
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, first.Source)
		items := first.Data.([]TrendingItem)
		require.Len(t, items, 5)
		for i := 1; i < len(items); i++ {
			assert.GreaterOrEqual(t, items[i-1].Score, items[i].Score)
		}

		second, err := svc.Trending(ctx, 7, 5)
		require.NoError(t, err)
		assert.Equal(t, first.Data, second.Data)

		res, err := svc.RecentEngagement(ctx, 14)
		require.NoError(t, err)
		assert.Len(t, res.Data.([]DayEngagement), 14)

		res, err = svc.ContentAnalytics(ctx)
		require.NoError(t, err)
		assert.Len(t, res.Data.([]ContentStats), 2)

		res, err = svc.Retention(ctx, 8)
		require.NoError(t, err)
		cohortRows := res.Data.([]Cohort)
		require.Len(t, cohortRows, 8)
		assert.Len(t, cohortRows[0].Retention, 8)
		assert.Len(t, cohortRows[7].Retention, 1)
	})

	t.Run("flag off returns the error", func(t *testing.T) {
		svc := newFailing("analytics_fallback=off")
		_, err := svc.Trending(ctx, 7, 5)
		assert.ErrorIs(t, err, errAggregation)
		_, err = svc.Retention(ctx, 8)
		assert.ErrorIs(t, err, errAggregation)
	})
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 7, clamp(0, 7, 90))
	assert.Equal(t, 7, clamp(-3, 7, 90))
	assert.Equal(t, 90, clamp(500, 7, 90))
	assert.Equal(t, 30, clamp(30, 7, 90))
}
