package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"resort/internal/cache"
	"resort/internal/models"

	"gorm.io/gorm"
)

// ProfileFilter narrows admin user listings.
type ProfileFilter struct {
	Query string
	Role  models.ProfileRole
}

// ProfileWithEmail is the admin projection of a profile joined with its login email.
type ProfileWithEmail struct {
	models.Profile
	Email string `json:"email"`
}

// ProfileCounts holds dashboard totals.
type ProfileCounts struct {
	Total  int64
	Hosts  int64
	Admins int64
	Banned int64
}

// ProfileRepository persists profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Profile, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Update(ctx context.Context, id uint, updates map[string]any) error
	SetRole(ctx context.Context, id uint, role models.ProfileRole) error
	SetBanned(ctx context.Context, id uint, banned bool) error
	// ListOthers returns every non-banned profile except exclude, by username.
	ListOthers(ctx context.Context, exclude uint) ([]models.Profile, error)
	Search(ctx context.Context, filter ProfileFilter, limit, offset int) ([]ProfileWithEmail, int64, error)
	ListIDs(ctx context.Context) ([]uint, error)
	ListAdmins(ctx context.Context) ([]models.Profile, error)
	Counts(ctx context.Context) (*ProfileCounts, error)
	TouchLastSeen(ctx context.Context, ids []uint, at time.Time) (int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a ProfileRepository backed by db.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetByID reads through the profile cache.
func (r *profileRepository) GetByID(ctx context.Context, id uint) (*models.Profile, error) {
	var profile models.Profile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).First(&profile, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Profile", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Profile, error) {
	var profiles []models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := readDB(r.db).WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

// GetByUsername returns nil, nil when the username is free.
func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(username)).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return ErrDuplicate
		}
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	cache.InvalidateProfile(ctx, id)
	return nil
}

func (r *profileRepository) SetRole(ctx context.Context, id uint, role models.ProfileRole) error {
	return r.Update(ctx, id, map[string]any{"role": role})
}

func (r *profileRepository) SetBanned(ctx context.Context, id uint, banned bool) error {
	return r.Update(ctx, id, map[string]any{"is_banned": banned})
}

func (r *profileRepository) ListOthers(ctx context.Context, exclude uint) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := readDB(r.db).WithContext(ctx).
		Where("id <> ? AND is_banned = ?", exclude, false).
		Order("username ASC").
		Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) Search(ctx context.Context, filter ProfileFilter, limit, offset int) ([]ProfileWithEmail, int64, error) {
	limit, offset = clampPage(limit, offset)

	base := func() *gorm.DB {
		q := readDB(r.db).WithContext(ctx).
			Table("profiles").
			Joins("JOIN users ON users.id = profiles.id")
		if filter.Role != "" {
			q = q.Where("profiles.role = ?", filter.Role)
		}
		if term := strings.TrimSpace(filter.Query); term != "" {
			like := "%" + escapeLike(strings.ToLower(term)) + "%"
			q = q.Where(`(LOWER(profiles.username) LIKE ? ESCAPE '\' OR LOWER(profiles.full_name) LIKE ? ESCAPE '\' OR LOWER(users.email) LIKE ? ESCAPE '\')`, like, like, like)
		}
		return q
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var rows []ProfileWithEmail
	if err := base().Select("profiles.*, users.email AS email").
		Order("profiles.created_at DESC, profiles.id DESC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return rows, total, nil
}

func (r *profileRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := readDB(r.db).WithContext(ctx).Model(&models.Profile{}).
		Where("is_banned = ?", false).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *profileRepository) ListAdmins(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := r.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Order("id ASC").Find(&profiles).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return profiles, nil
}

func (r *profileRepository) Counts(ctx context.Context) (*ProfileCounts, error) {
	var out ProfileCounts
	err := readDB(r.db).WithContext(ctx).Model(&models.Profile{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN role = 'host' THEN 1 ELSE 0 END), 0) AS hosts,
			COALESCE(SUM(CASE WHEN role = 'admin' THEN 1 ELSE 0 END), 0) AS admins,
			COALESCE(SUM(CASE WHEN is_banned THEN 1 ELSE 0 END), 0) AS banned`).
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

func (r *profileRepository) TouchLastSeen(ctx context.Context, ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id IN ?", ids).UpdateColumn("last_seen_at", at)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}
