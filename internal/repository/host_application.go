package repository

import (
	"context"
	"errors"
	"time"

	"resort/internal/cache"
	"resort/internal/models"

	"gorm.io/gorm"
)

// ErrNotPending is returned when a review targets an application that was already reviewed.
var ErrNotPending = errors.New("application is not pending")

// HostApplicationReview describes one admin decision.
type HostApplicationReview struct {
	ApplicationID uint
	ReviewerID    uint
	Status        models.HostApplicationStatus
	Notes         string
	At            time.Time
	// PromoteTo, when set, becomes the applicant's role in the same transaction.
	// Only a guest is promoted; a profile that already holds a higher role keeps it.
	PromoteTo models.ProfileRole
	Audit     *models.AuditLog
}

// HostApplicationRepository persists host applications.
type HostApplicationRepository interface {
	Create(ctx context.Context, app *models.HostApplication) error
	GetByID(ctx context.Context, id uint) (*models.HostApplication, error)
	// GetByProfile returns nil, nil when the profile never applied.
	GetByProfile(ctx context.Context, profileID uint) (*models.HostApplication, error)
	List(ctx context.Context, status models.HostApplicationStatus, limit, offset int) ([]models.HostApplication, int64, error)
	Review(ctx context.Context, review HostApplicationReview) (*models.HostApplication, error)
	CountPending(ctx context.Context) (int64, error)
}

type hostApplicationRepository struct {
	db *gorm.DB
}

// NewHostApplicationRepository returns a HostApplicationRepository backed by db.
func NewHostApplicationRepository(db *gorm.DB) HostApplicationRepository {
	return &hostApplicationRepository{db: db}
}

func (r *hostApplicationRepository) Create(ctx context.Context, app *models.HostApplication) error {
	if err := r.db.WithContext(ctx).Omit("Profile", "ReviewedBy").Create(app).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *hostApplicationRepository) GetByID(ctx context.Context, id uint) (*models.HostApplication, error) {
	var app models.HostApplication
	if err := r.db.WithContext(ctx).Preload("Profile").First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Host application", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &app, nil
}

func (r *hostApplicationRepository) GetByProfile(ctx context.Context, profileID uint) (*models.HostApplication, error) {
	var app models.HostApplication
	if err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &app, nil
}

func (r *hostApplicationRepository) List(ctx context.Context, status models.HostApplicationStatus, limit, offset int) ([]models.HostApplication, int64, error) {
	limit, offset = clampPage(limit, offset)

	q := readDB(r.db).WithContext(ctx).Model(&models.HostApplication{})
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var apps []models.HostApplication
	if err := q.Preload("Profile").Preload("ReviewedBy").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&apps).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return apps, total, nil
}

// Review applies the decision, the optional role change and the audit row atomically.
func (r *hostApplicationRepository) Review(ctx context.Context, review HostApplicationReview) (*models.HostApplication, error) {
	var app models.HostApplication
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&app, review.ApplicationID).Error; err != nil {
			return err
		}

		res := tx.Model(&models.HostApplication{}).
			Where("id = ? AND status = ?", review.ApplicationID, models.HostApplicationPending).
			Updates(map[string]any{
				"status":         review.Status,
				"admin_notes":    review.Notes,
				"reviewed_by_id": review.ReviewerID,
				"reviewed_at":    review.At,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotPending
		}

		if review.PromoteTo != "" {
			if err := tx.Model(&models.Profile{}).
				Where("id = ? AND role = ?", app.ProfileID, models.RoleGuest).
				Update("role", review.PromoteTo).Error; err != nil {
				return err
			}
		}
		if review.Audit != nil {
			if err := tx.Omit("Actor").Create(review.Audit).Error; err != nil {
				return err
			}
		}
		return tx.Preload("Profile").First(&app, review.ApplicationID).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, models.NewNotFoundError("Host application", review.ApplicationID)
		case errors.Is(err, ErrNotPending):
			return nil, ErrNotPending
		}
		return nil, models.NewInternalError(err)
	}
	if review.PromoteTo != "" {
		cache.InvalidateProfile(ctx, app.ProfileID)
	}
	return &app, nil
}

func (r *hostApplicationRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := readDB(r.db).WithContext(ctx).Model(&models.HostApplication{}).
		Where("status = ?", models.HostApplicationPending).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
