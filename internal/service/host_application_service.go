package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"resort/internal/models"
	"resort/internal/observability"
	"resort/internal/repository"
	"resort/internal/validation"
)

// HostApplicationInput is an application to become a host.
type HostApplicationInput struct {
	BusinessName string `json:"business_name"`
	ListingType  string `json:"listing_type"`
	Location     string `json:"location"`
	About        string `json:"about"`
	Experience   string `json:"experience"`
	Phone        string `json:"phone"`
}

// HostApplicationService runs the apply-review workflow for hosts.
type HostApplicationService struct {
	apps   repository.HostApplicationRepository
	events Publisher
	now    func() time.Time
}

// NewHostApplicationService returns a new HostApplicationService.
func NewHostApplicationService(apps repository.HostApplicationRepository, events Publisher) *HostApplicationService {
	return &HostApplicationService{apps: apps, events: publisherOrNop(events), now: time.Now}
}

// Submit files an application for actor. A profile gets one application,
// whatever the outcome of the first one.
func (s *HostApplicationService) Submit(ctx context.Context, actor Actor, in HostApplicationInput) (*models.HostApplication, error) {
	if actor.Role.CanHost() {
		return nil, models.NewConflictError("You can already host listings")
	}

	existing, err := s.apps.GetByProfile(ctx, actor.ProfileID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewExistingApplicationError(existing)
	}

	in.ListingType = strings.ToLower(strings.TrimSpace(in.ListingType))
	if err := validationError(validation.ValidateHostApplication(validation.HostApplicationFields{
		BusinessName: in.BusinessName,
		ListingType:  in.ListingType,
		Location:     in.Location,
		About:        in.About,
		Experience:   in.Experience,
		Phone:        in.Phone,
	})); err != nil {
		return nil, err
	}

	app := &models.HostApplication{
		ProfileID:    actor.ProfileID,
		Status:       models.HostApplicationPending,
		BusinessName: strings.TrimSpace(in.BusinessName),
		ListingType:  in.ListingType,
		Location:     strings.TrimSpace(in.Location),
		About:        strings.TrimSpace(in.About),
		Experience:   strings.TrimSpace(in.Experience),
		Phone:        strings.TrimSpace(in.Phone),
	}
	if err := s.apps.Create(ctx, app); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if existing, getErr := s.apps.GetByProfile(ctx, actor.ProfileID); getErr == nil && existing != nil {
				return nil, models.NewExistingApplicationError(existing)
			}
			return nil, models.NewConflictError("You already have a host application")
		}
		return nil, err
	}
	observability.HostApplications.WithLabelValues(string(models.HostApplicationPending)).Inc()
	return app, nil
}

// GetMine returns the caller's application.
func (s *HostApplicationService) GetMine(ctx context.Context, profileID uint) (*models.HostApplication, error) {
	app, err := s.apps.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, models.NewNotFoundError("Host application for profile", profileID)
	}
	return app, nil
}

// List returns applications for the admin queue.
func (s *HostApplicationService) List(ctx context.Context, actor Actor, status models.HostApplicationStatus, limit, offset int) ([]models.HostApplication, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, models.NewForbiddenError("Admin access required")
	}
	switch status {
	case "", models.HostApplicationPending, models.HostApplicationApproved, models.HostApplicationDeclined:
	default:
		return nil, 0, models.NewValidationError("Unknown application status")
	}
	apps, total, err := s.apps.List(ctx, status, limit, offset)
	if apps == nil {
		apps = []models.HostApplication{}
	}
	return apps, total, err
}

// Approve grants the applicant the host role.
func (s *HostApplicationService) Approve(ctx context.Context, actor Actor, id uint, notes string) (*models.HostApplication, error) {
	return s.review(ctx, actor, id, models.HostApplicationApproved, notes)
}

// Decline rejects a pending application. Notes are required.
func (s *HostApplicationService) Decline(ctx context.Context, actor Actor, id uint, notes string) (*models.HostApplication, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, models.NewValidationError("Notes are required when declining an application")
	}
	return s.review(ctx, actor, id, models.HostApplicationDeclined, notes)
}

func (s *HostApplicationService) review(ctx context.Context, actor Actor, id uint, status models.HostApplicationStatus, notes string) (*models.HostApplication, error) {
	if !actor.IsAdmin() {
		return nil, models.NewForbiddenError("Admin access required")
	}
	notes = strings.TrimSpace(notes)
	if utf8.RuneCountInString(notes) > validation.MaxAdminNotesLen {
		return nil, models.NewValidationError("Notes too long (max 2000 characters)")
	}

	action := models.AuditHostApplicationDecline
	var promote models.ProfileRole
	if status == models.HostApplicationApproved {
		action = models.AuditHostApplicationApprove
		promote = models.RoleHost
	}

	app, err := s.apps.Review(ctx, repository.HostApplicationReview{
		ApplicationID: id,
		ReviewerID:    actor.ProfileID,
		Status:        status,
		Notes:         notes,
		At:            s.now(),
		PromoteTo:     promote,
		Audit: auditEntry(actor, action, "host_application", id, map[string]any{
			"status": status,
			"notes":  notes,
		}),
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			return nil, models.NewConflictError("Application has already been reviewed")
		}
		return nil, err
	}

	observability.HostApplications.WithLabelValues(string(status)).Inc()
	s.events.UserEvent(ctx, app.ProfileID, EventHostApplicationReviewed, map[string]any{
		"application_id": app.ID,
		"status":         app.Status,
		"admin_notes":    app.AdminNotes,
	})
	return app, nil
}
