package repository

import (
	"context"

	"resort/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FavoriteRepository persists saved listings.
type FavoriteRepository interface {
	// Add is idempotent; created reports whether a new row was inserted.
	Add(ctx context.Context, fav *models.Favorite) (created bool, err error)
	Remove(ctx context.Context, profileID uint, ref models.ListingRef) error
	ListByProfile(ctx context.Context, profileID uint) ([]models.Favorite, error)
	Exists(ctx context.Context, profileID uint, ref models.ListingRef) (bool, error)
	DeleteByListing(ctx context.Context, ref models.ListingRef) error
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository returns a FavoriteRepository backed by db.
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) Add(ctx context.Context, fav *models.Favorite) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(fav)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, profileID uint, ref models.ListingRef) error {
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND content_type = ? AND content_id = ?", profileID, ref.Type, ref.ID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *favoriteRepository) ListByProfile(ctx context.Context, profileID uint) ([]models.Favorite, error) {
	var favs []models.Favorite
	err := readDB(r.db).WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC, id DESC").
		Find(&favs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return favs, nil
}

func (r *favoriteRepository) Exists(ctx context.Context, profileID uint, ref models.ListingRef) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("profile_id = ? AND content_type = ? AND content_id = ?", profileID, ref.Type, ref.ID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *favoriteRepository) DeleteByListing(ctx context.Context, ref models.ListingRef) error {
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", ref.Type, ref.ID).
		Delete(&models.Favorite{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
