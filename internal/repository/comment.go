package repository

import (
	"context"
	"errors"

	"resort/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByListing(ctx context.Context, ref models.ListingRef) ([]models.Comment, error)
	Delete(ctx context.Context, id uint) error
	DeleteByListing(ctx context.Context, ref models.ListingRef) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Profile").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Profile").First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByListing returns a listing's comments oldest first.
func (r *commentRepository) ListByListing(ctx context.Context, ref models.ListingRef) ([]models.Comment, error) {
	var comments []models.Comment
	err := readDB(r.db).WithContext(ctx).Preload("Profile").
		Where("content_type = ? AND content_id = ?", ref.Type, ref.ID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Delete(ctx context.Context, id uint) error {
	return deleteByID(ctx, r.db, &models.Comment{}, "Comment", id)
}

func (r *commentRepository) DeleteByListing(ctx context.Context, ref models.ListingRef) error {
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", ref.Type, ref.ID).
		Delete(&models.Comment{}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
