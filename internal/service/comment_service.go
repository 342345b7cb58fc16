package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/validation"
)

// ListingLookup resolves published listings for comments and favorites.
type ListingLookup interface {
	PublishedListing(ctx context.Context, ref models.ListingRef) (*repository.ListingSummary, error)
}

// CommentService manages listing comments.
type CommentService struct {
	comments   repository.CommentRepository
	listings   ListingLookup
	engagement *EngagementService
	audit      repository.AuditLogRepository
}

// NewCommentService returns a new CommentService.
func NewCommentService(
	comments repository.CommentRepository,
	listings ListingLookup,
	engagement *EngagementService,
	audit repository.AuditLogRepository,
) *CommentService {
	return &CommentService{
		comments:   comments,
		listings:   listings,
		engagement: engagement,
		audit:      audit,
	}
}

// List returns the comments of a published listing, oldest first.
func (s *CommentService) List(ctx context.Context, ref models.ListingRef) ([]models.Comment, error) {
	if _, err := s.listings.PublishedListing(ctx, ref); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByListing(ctx, ref)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// Create adds a comment by profileID and records a comment engagement event.
func (s *CommentService) Create(ctx context.Context, profileID uint, ref models.ListingRef, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}
	if utf8.RuneCountInString(body) > validation.MaxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}
	if _, err := s.listings.PublishedListing(ctx, ref); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ProfileID:   profileID,
		ContentType: ref.Type,
		ContentID:   ref.ID,
		Body:        body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	s.engagement.track(ctx, &profileID, ref, models.EngagementComment)
	return s.comments.GetByID(ctx, comment.ID)
}

// Delete removes a comment. Authors delete their own; admins delete any and are audited.
func (s *CommentService) Delete(ctx context.Context, actor Actor, id uint) (*models.Comment, error) {
	comment, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(comment.ProfileID) {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return nil, err
	}
	if comment.ProfileID != actor.ProfileID {
		recordAudit(ctx, s.audit, auditEntry(actor, models.AuditCommentDeleted, "comment", id, map[string]any{
			"author_id":    comment.ProfileID,
			"content_type": comment.ContentType,
			"content_id":   comment.ContentID,
		}))
	}
	return comment, nil
}
