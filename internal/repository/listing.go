package repository

import (
	"context"
	"errors"
	"strings"

	"resort/internal/models"

	"gorm.io/gorm"
)

// Listing sort orders accepted by Browse.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// ListingFilter narrows a listing browse query.
type ListingFilter struct {
	Query    string   `json:"q,omitempty"`
	Location string   `json:"location,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Guests   int      `json:"guests,omitempty"`
	// Kind is property_type for accommodations and category for experiences.
	Kind          string `json:"kind,omitempty"`
	Sort          string `json:"sort,omitempty"`
	HostID        uint   `json:"host_id,omitempty"`
	PublishedOnly bool   `json:"published_only,omitempty"`
}

// ListingCounts holds dashboard totals for one listing table.
type ListingCounts struct {
	Total     int64
	Published int64
}

// ListingSummary is the minimal listing projection used by analytics and moderation.
type ListingSummary struct {
	ID          uint    `json:"id"`
	HostID      uint    `json:"host_id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	IsPublished bool    `json:"is_published"`
}

type listingColumns struct {
	table    string
	price    string
	capacity string
	kind     string
}

var (
	accommodationColumns = listingColumns{table: "accommodations", price: "price_per_night", capacity: "max_guests", kind: "property_type"}
	experienceColumns    = listingColumns{table: "experiences", price: "price", capacity: "max_participants", kind: "category"}
)

func applyListingFilter(q *gorm.DB, f ListingFilter, cols listingColumns) *gorm.DB {
	if f.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if f.HostID != 0 {
		q = q.Where("host_id = ?", f.HostID)
	}
	if term := strings.TrimSpace(f.Query); term != "" {
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		q = q.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(location) LIKE ? ESCAPE '\')`, like, like, like)
	}
	if loc := strings.TrimSpace(f.Location); loc != "" {
		q = q.Where(`LOWER(location) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(loc))+"%")
	}
	if f.MinPrice != nil {
		q = q.Where(cols.price+" >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where(cols.price+" <= ?", *f.MaxPrice)
	}
	if f.Guests > 0 {
		q = q.Where(cols.capacity+" >= ?", f.Guests)
	}
	if kind := strings.TrimSpace(f.Kind); kind != "" {
		q = q.Where("LOWER("+cols.kind+") = ?", strings.ToLower(kind))
	}

	switch f.Sort {
	case SortPriceAsc:
		q = q.Order(cols.price + " ASC").Order("id ASC")
	case SortPriceDesc:
		q = q.Order(cols.price + " DESC").Order("id DESC")
	default:
		q = q.Order("created_at DESC").Order("id DESC")
	}
	return q
}

func listingCounts(ctx context.Context, db *gorm.DB, table string) (*ListingCounts, error) {
	var out ListingCounts
	err := readDB(db).WithContext(ctx).Table(table).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_published THEN 1 ELSE 0 END), 0) AS published").
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &out, nil
}

func listingSummaries(ctx context.Context, db *gorm.DB, cols listingColumns, ids []uint) ([]ListingSummary, error) {
	var out []ListingSummary
	if len(ids) == 0 {
		return out, nil
	}
	err := readDB(db).WithContext(ctx).Table(cols.table).
		Select("id, host_id, title, "+cols.price+" AS price, is_published").
		Where("id IN ?", ids).
		Scan(&out).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func setPublished(ctx context.Context, db *gorm.DB, model any, resource string, id uint, published bool) error {
	res := db.WithContext(ctx).Model(model).Where("id = ?", id).Update("is_published", published)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

func deleteByID(ctx context.Context, db *gorm.DB, model any, resource string, id uint) error {
	res := db.WithContext(ctx).Delete(model, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError(resource, id)
	}
	return nil
}

// AccommodationRepository persists accommodations.
type AccommodationRepository interface {
	Create(ctx context.Context, a *models.Accommodation) error
	GetByID(ctx context.Context, id uint) (*models.Accommodation, error)
	Update(ctx context.Context, a *models.Accommodation) error
	Delete(ctx context.Context, id uint) error
	SetPublished(ctx context.Context, id uint, published bool) error
	Browse(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Accommodation, error)
	Summaries(ctx context.Context, ids []uint) ([]ListingSummary, error)
	Counts(ctx context.Context) (*ListingCounts, error)
}

type accommodationRepository struct {
	db *gorm.DB
}

// NewAccommodationRepository returns an AccommodationRepository backed by db.
func NewAccommodationRepository(db *gorm.DB) AccommodationRepository {
	return &accommodationRepository{db: db}
}

func (r *accommodationRepository) Create(ctx context.Context, a *models.Accommodation) error {
	if err := r.db.WithContext(ctx).Omit("Host").Create(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accommodationRepository) GetByID(ctx context.Context, id uint) (*models.Accommodation, error) {
	var a models.Accommodation
	if err := readDB(r.db).WithContext(ctx).Preload("Host").First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Accommodation", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &a, nil
}

func (r *accommodationRepository) Update(ctx context.Context, a *models.Accommodation) error {
	if err := r.db.WithContext(ctx).Omit("Host", "HostID", "CreatedAt").Save(a).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *accommodationRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Accommodation{}, "Accommodation", id)
}

func (r *accommodationRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	return setPublished(ctx, r.db, &models.Accommodation{}, "Accommodation", id, published)
}

func (r *accommodationRepository) Browse(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Accommodation, error) {
	limit, offset = clampPage(limit, offset)
	var out []models.Accommodation
	q := applyListingFilter(readDB(r.db).WithContext(ctx).Model(&models.Accommodation{}), filter, accommodationColumns)
	if err := q.Preload("Host").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *accommodationRepository) Summaries(ctx context.Context, ids []uint) ([]ListingSummary, error) {
	return listingSummaries(ctx, r.db, accommodationColumns, ids)
}

func (r *accommodationRepository) Counts(ctx context.Context) (*ListingCounts, error) {
	return listingCounts(ctx, r.db, accommodationColumns.table)
}

// ExperienceRepository persists experiences.
type ExperienceRepository interface {
	Create(ctx context.Context, e *models.Experience) error
	GetByID(ctx context.Context, id uint) (*models.Experience, error)
	Update(ctx context.Context, e *models.Experience) error
	Delete(ctx context.Context, id uint) error
	SetPublished(ctx context.Context, id uint, published bool) error
	Browse(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Experience, error)
	Summaries(ctx context.Context, ids []uint) ([]ListingSummary, error)
	Counts(ctx context.Context) (*ListingCounts, error)
}

type experienceRepository struct {
	db *gorm.DB
}

// NewExperienceRepository returns an ExperienceRepository backed by db.
func NewExperienceRepository(db *gorm.DB) ExperienceRepository {
	return &experienceRepository{db: db}
}

func (r *experienceRepository) Create(ctx context.Context, e *models.Experience) error {
	if err := r.db.WithContext(ctx).Omit("Host").Create(e).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *experienceRepository) GetByID(ctx context.Context, id uint) (*models.Experience, error) {
	var e models.Experience
	if err := readDB(r.db).WithContext(ctx).Preload("Host").First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Experience", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &e, nil
}

func (r *experienceRepository) Update(ctx context.Context, e *models.Experience) error {
	if err := r.db.WithContext(ctx).Omit("Host", "HostID", "CreatedAt").Save(e).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *experienceRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Experience{}, "Experience", id)
}

func (r *experienceRepository) SetPublished(ctx context.Context, id uint, published bool) error {
	return setPublished(ctx, r.db, &models.Experience{}, "Experience", id, published)
}

func (r *experienceRepository) Browse(ctx context.Context, filter ListingFilter, limit, offset int) ([]models.Experience, error) {
	limit, offset = clampPage(limit, offset)
	var out []models.Experience
	q := applyListingFilter(readDB(r.db).WithContext(ctx).Model(&models.Experience{}), filter, experienceColumns)
	if err := q.Preload("Host").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *experienceRepository) Summaries(ctx context.Context, ids []uint) ([]ListingSummary, error) {
	return listingSummaries(ctx, r.db, experienceColumns, ids)
}

func (r *experienceRepository) Counts(ctx context.Context) (*ListingCounts, error) {
	return listingCounts(ctx, r.db, experienceColumns.table)
}
