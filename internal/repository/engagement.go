package repository

import (
	"context"
	"fmt"
	"time"

	"resort/internal/models"

	"gorm.io/gorm"
)

// TrendingRow is one listing's weighted engagement within a window.
type TrendingRow struct {
	ContentType models.ContentType `json:"content_type"`
	ContentID   uint               `json:"content_id"`
	Views       int64              `json:"views"`
	Favorites   int64              `json:"favorites"`
	Comments    int64              `json:"comments"`
	Shares      int64              `json:"shares"`
	Inquiries   int64              `json:"inquiries"`
	Score       int64              `json:"score"`
}

// EventStamp is the projection used for time bucketing.
type EventStamp struct {
	ProfileID *uint
	EventType models.EngagementType
	CreatedAt time.Time
}

// ContentTypeEngagement counts events of one type against one content type.
type ContentTypeEngagement struct {
	ContentType models.ContentType
	EventType   models.EngagementType
	Count       int64
}

// ListingStats summarizes one listing table.
type ListingStats struct {
	Total        int64
	Published    int64
	AveragePrice float64
}

// SignupStamp is a profile id with its creation time.
type SignupStamp struct {
	ID        uint
	CreatedAt time.Time
}

// Score weights per engagement type.
const (
	WeightView     = 1
	WeightFavorite = 3
	WeightComment  = 2
	WeightShare    = 4
	WeightInquiry  = 5
)

// EngagementRepository records engagement events and serves the analytics aggregations.
type EngagementRepository interface {
	Create(ctx context.Context, event *models.EngagementEvent) error
	Trending(ctx context.Context, since time.Time, limit int) ([]TrendingRow, error)
	EventsSince(ctx context.Context, since time.Time) ([]EventStamp, error)
	CountsByContentType(ctx context.Context) ([]ContentTypeEngagement, error)
	ListingStats(ctx context.Context, kind models.ContentType) (*ListingStats, error)
	SignupsSince(ctx context.Context, since time.Time) ([]SignupStamp, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository returns an EngagementRepository backed by db.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Create(ctx context.Context, event *models.EngagementEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func countOf(t models.EngagementType) string {
	return "COALESCE(SUM(CASE WHEN event_type = '" + string(t) + "' THEN 1 ELSE 0 END), 0)"
}

func (r *engagementRepository) Trending(ctx context.Context, since time.Time, limit int) ([]TrendingRow, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	views, favs := countOf(models.EngagementView), countOf(models.EngagementFavorite)
	comments, shares := countOf(models.EngagementComment), countOf(models.EngagementShare)
	inquiries := countOf(models.EngagementInquiry)
	score := fmt.Sprintf("(%s * %d + %s * %d + %s * %d + %s * %d + %s * %d)",
		views, WeightView, favs, WeightFavorite, comments, WeightComment, shares, WeightShare, inquiries, WeightInquiry)

	var rows []TrendingRow
	err := readDB(r.db).WithContext(ctx).Model(&models.EngagementEvent{}).
		Select("content_type, content_id, " +
			views + " AS views, " +
			favs + " AS favorites, " +
			comments + " AS comments, " +
			shares + " AS shares, " +
			inquiries + " AS inquiries, " +
			score + " AS score").
		Where("created_at >= ?", since).
		Group("content_type, content_id").
		Order("score DESC, content_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *engagementRepository) EventsSince(ctx context.Context, since time.Time) ([]EventStamp, error) {
	var rows []EventStamp
	err := readDB(r.db).WithContext(ctx).Model(&models.EngagementEvent{}).
		Select("profile_id, event_type, created_at").
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *engagementRepository) CountsByContentType(ctx context.Context) ([]ContentTypeEngagement, error) {
	var rows []ContentTypeEngagement
	err := readDB(r.db).WithContext(ctx).Model(&models.EngagementEvent{}).
		Select("content_type, event_type, COUNT(*) AS count").
		Group("content_type, event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

func (r *engagementRepository) ListingStats(ctx context.Context, kind models.ContentType) (*ListingStats, error) {
	cols := accommodationColumns
	if kind == models.ContentExperience {
		cols = experienceColumns
	}
	var out ListingStats
	err := readDB(r.db).WithContext(ctx).Table(cols.table).
		Select("COUNT(*) AS total, " +
			"COALESCE(SUM(CASE WHEN is_published THEN 1 ELSE 0 END), 0) AS published, " +
			"COALESCE(AVG(" + cols.price + "), 0) AS average_price").
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

func (r *engagementRepository) SignupsSince(ctx context.Context, since time.Time) ([]SignupStamp, error) {
	var rows []SignupStamp
	err := readDB(r.db).WithContext(ctx).Model(&models.Profile{}).
		Select("id, created_at").
		Where("created_at >= ?", since).
		Order("created_at ASC, id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}
