package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resort/internal/cache"
	"resort/internal/models"
	"resort/internal/observability"
	"resort/internal/repository"
	"resort/internal/validation"

	"gorm.io/datatypes"
)

// AccommodationInput is a create or full-update submission for an accommodation.
type AccommodationInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	PropertyType  string   `json:"property_type"`
	PricePerNight float64  `json:"price_per_night"`
	MaxGuests     int      `json:"max_guests"`
	Bedrooms      int      `json:"bedrooms"`
	Bathrooms     int      `json:"bathrooms"`
	Amenities     []string `json:"amenities"`
	ImageURLs     []string `json:"image_urls"`
	IsPublished   bool     `json:"is_published"`
}

// ExperienceInput is a create or full-update submission for an experience.
type ExperienceInput struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Category        string   `json:"category"`
	Price           float64  `json:"price"`
	DurationHours   float64  `json:"duration_hours"`
	MaxParticipants int      `json:"max_participants"`
	Included        []string `json:"included"`
	ImageURLs       []string `json:"image_urls"`
	IsPublished     bool     `json:"is_published"`
}

func (in AccommodationInput) validate() error {
	return validationError(validation.ValidateAccommodation(validation.AccommodationFields{
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		PricePerNight: in.PricePerNight,
		MaxGuests:     in.MaxGuests,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
		ImageURLs:     in.ImageURLs,
	}))
}

func (in AccommodationInput) apply(a *models.Accommodation) {
	a.Title = strings.TrimSpace(in.Title)
	a.Description = strings.TrimSpace(in.Description)
	a.Location = strings.TrimSpace(in.Location)
	a.PropertyType = strings.TrimSpace(in.PropertyType)
	a.PricePerNight = in.PricePerNight
	a.MaxGuests = in.MaxGuests
	a.Bedrooms = in.Bedrooms
	a.Bathrooms = in.Bathrooms
	a.Amenities = trimList(in.Amenities)
	a.ImageURLs = trimList(in.ImageURLs)
	a.IsPublished = in.IsPublished
}

func (in ExperienceInput) validate() error {
	return validationError(validation.ValidateExperience(validation.ExperienceFields{
		Title:           in.Title,
		Description:     in.Description,
		Location:        in.Location,
		Price:           in.Price,
		DurationHours:   in.DurationHours,
		MaxParticipants: in.MaxParticipants,
		ImageURLs:       in.ImageURLs,
	}))
}

func (in ExperienceInput) apply(e *models.Experience) {
	e.Title = strings.TrimSpace(in.Title)
	e.Description = strings.TrimSpace(in.Description)
	e.Location = strings.TrimSpace(in.Location)
	e.Category = strings.TrimSpace(in.Category)
	e.Price = in.Price
	e.DurationHours = in.DurationHours
	e.MaxParticipants = in.MaxParticipants
	e.Included = trimList(in.Included)
	e.ImageURLs = trimList(in.ImageURLs)
	e.IsPublished = in.IsPublished
}

func trimList(in []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// validationError turns field errors into a VALIDATION_ERROR carrying them as details.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	appErr := models.NewValidationError("Please correct the highlighted fields")
	var fields validation.Errors
	if errors.As(err, &fields) {
		appErr.Details = fields
	} else {
		appErr.Message = err.Error()
	}
	return appErr
}

// ListingService manages accommodations and experiences.
type ListingService struct {
	accommodations repository.AccommodationRepository
	experiences    repository.ExperienceRepository
	comments       repository.CommentRepository
	favorites      repository.FavoriteRepository
	audit          repository.AuditLogRepository
}

// NewListingService returns a new ListingService.
func NewListingService(
	accommodations repository.AccommodationRepository,
	experiences repository.ExperienceRepository,
	comments repository.CommentRepository,
	favorites repository.FavoriteRepository,
	audit repository.AuditLogRepository,
) *ListingService {
	return &ListingService{
		accommodations: accommodations,
		experiences:    experiences,
		comments:       comments,
		favorites:      favorites,
		audit:          audit,
	}
}

func requireHost(actor Actor) error {
	if !actor.Role.CanHost() {
		return models.NewForbiddenError("Only hosts can manage listings")
	}
	return nil
}

// CreateAccommodation inserts one accommodation owned by actor.
func (s *ListingService) CreateAccommodation(ctx context.Context, actor Actor, in AccommodationInput) (*models.Accommodation, error) {
	if err := requireHost(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	a := &models.Accommodation{HostID: actor.ProfileID}
	in.apply(a)
	if err := s.accommodations.Create(ctx, a); err != nil {
		return nil, err
	}
	observability.ListingsCreated.WithLabelValues(string(models.ContentAccommodation)).Inc()
	cache.InvalidateListings(ctx, string(models.ContentAccommodation))
	return a, nil
}

// UpdateAccommodation replaces the editable fields of an accommodation.
func (s *ListingService) UpdateAccommodation(ctx context.Context, actor Actor, id uint, in AccommodationInput) (*models.Accommodation, error) {
	a, err := s.accommodations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(a.HostID) {
		return nil, models.NewForbiddenError("You can only edit your own listings")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(a)
	if err := s.accommodations.Update(ctx, a); err != nil {
		return nil, err
	}
	cache.InvalidateListings(ctx, string(models.ContentAccommodation))
	return a, nil
}

// GetAccommodation returns a published accommodation, or a draft to its owner or an admin.
func (s *ListingService) GetAccommodation(ctx context.Context, viewer *Actor, id uint) (*models.Accommodation, error) {
	a, err := s.accommodations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.IsPublished && (viewer == nil || !viewer.CanManage(a.HostID)) {
		return nil, models.NewNotFoundError("Accommodation", id)
	}
	return a, nil
}

// BrowseAccommodations lists published accommodations through the browse cache.
func (s *ListingService) BrowseAccommodations(ctx context.Context, filter repository.ListingFilter, limit, offset int) ([]models.Accommodation, error) {
	filter.PublishedOnly = true
	filter.HostID = 0
	var out []models.Accommodation
	key := cache.ListingsBrowseKey(ctx, string(models.ContentAccommodation), browseCacheArgs(filter, limit, offset))
	err := cache.Aside(ctx, key, &out, cache.ListTTL, func() error {
		rows, err := s.accommodations.Browse(ctx, filter, limit, offset)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if out == nil {
		out = []models.Accommodation{}
	}
	return out, err
}

// CreateExperience inserts one experience owned by actor.
func (s *ListingService) CreateExperience(ctx context.Context, actor Actor, in ExperienceInput) (*models.Experience, error) {
	if err := requireHost(actor); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	e := &models.Experience{HostID: actor.ProfileID}
	in.apply(e)
	if err := s.experiences.Create(ctx, e); err != nil {
		return nil, err
	}
	observability.ListingsCreated.WithLabelValues(string(models.ContentExperience)).Inc()
	cache.InvalidateListings(ctx, string(models.ContentExperience))
	return e, nil
}

// UpdateExperience replaces the editable fields of an experience.
func (s *ListingService) UpdateExperience(ctx context.Context, actor Actor, id uint, in ExperienceInput) (*models.Experience, error) {
	e, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(e.HostID) {
		return nil, models.NewForbiddenError("You can only edit your own listings")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.apply(e)
	if err := s.experiences.Update(ctx, e); err != nil {
		return nil, err
	}
	cache.InvalidateListings(ctx, string(models.ContentExperience))
	return e, nil
}

// GetExperience returns a published experience, or a draft to its owner or an admin.
func (s *ListingService) GetExperience(ctx context.Context, viewer *Actor, id uint) (*models.Experience, error) {
	e, err := s.experiences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsPublished && (viewer == nil || !viewer.CanManage(e.HostID)) {
		return nil, models.NewNotFoundError("Experience", id)
	}
	return e, nil
}

// BrowseExperiences lists published experiences through the browse cache.
func (s *ListingService) BrowseExperiences(ctx context.Context, filter repository.ListingFilter, limit, offset int) ([]models.Experience, error) {
	filter.PublishedOnly = true
	filter.HostID = 0
	var out []models.Experience
	key := cache.ListingsBrowseKey(ctx, string(models.ContentExperience), browseCacheArgs(filter, limit, offset))
	err := cache.Aside(ctx, key, &out, cache.ListTTL, func() error {
		rows, err := s.experiences.Browse(ctx, filter, limit, offset)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if out == nil {
		out = []models.Experience{}
	}
	return out, err
}

// MyAccommodations lists the actor's accommodations including drafts.
func (s *ListingService) MyAccommodations(ctx context.Context, actor Actor) ([]models.Accommodation, error) {
	return s.accommodations.Browse(ctx, repository.ListingFilter{HostID: actor.ProfileID}, 100, 0)
}

// MyExperiences lists the actor's experiences including drafts.
func (s *ListingService) MyExperiences(ctx context.Context, actor Actor) ([]models.Experience, error) {
	return s.experiences.Browse(ctx, repository.ListingFilter{HostID: actor.ProfileID}, 100, 0)
}

// listingSummary loads the owner and state of any listing.
func (s *ListingService) listingSummary(ctx context.Context, ref models.ListingRef) (*repository.ListingSummary, error) {
	var rows []repository.ListingSummary
	var err error
	switch ref.Type {
	case models.ContentAccommodation:
		rows, err = s.accommodations.Summaries(ctx, []uint{ref.ID})
	case models.ContentExperience:
		rows, err = s.experiences.Summaries(ctx, []uint{ref.ID})
	default:
		return nil, models.NewValidationError("Unknown listing type")
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, models.NewNotFoundError(resourceName(ref.Type), ref.ID)
	}
	return &rows[0], nil
}

// PublishedListing returns the listing summary when it exists and is published.
func (s *ListingService) PublishedListing(ctx context.Context, ref models.ListingRef) (*repository.ListingSummary, error) {
	summary, err := s.listingSummary(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !summary.IsPublished {
		return nil, models.NewNotFoundError(resourceName(ref.Type), ref.ID)
	}
	return summary, nil
}

// SetPublished toggles visibility. Admin changes to someone else's listing are audited.
func (s *ListingService) SetPublished(ctx context.Context, actor Actor, ref models.ListingRef, published bool) error {
	summary, err := s.listingSummary(ctx, ref)
	if err != nil {
		return err
	}
	if !actor.CanManage(summary.HostID) {
		return models.NewForbiddenError("You can only publish your own listings")
	}

	switch ref.Type {
	case models.ContentAccommodation:
		err = s.accommodations.SetPublished(ctx, ref.ID, published)
	case models.ContentExperience:
		err = s.experiences.SetPublished(ctx, ref.ID, published)
	}
	if err != nil {
		return err
	}
	cache.InvalidateListings(ctx, string(ref.Type))

	if actor.IsAdmin() {
		recordAudit(ctx, s.audit, auditEntry(actor, models.AuditListingPublishToggled, string(ref.Type), ref.ID, map[string]any{
			"title":        summary.Title,
			"host_id":      summary.HostID,
			"is_published": published,
		}))
	}
	return nil
}

// DeleteListing removes a listing with its comments and favorites.
func (s *ListingService) DeleteListing(ctx context.Context, actor Actor, ref models.ListingRef) error {
	summary, err := s.listingSummary(ctx, ref)
	if err != nil {
		return err
	}
	if !actor.CanManage(summary.HostID) {
		return models.NewForbiddenError("You can only delete your own listings")
	}

	if err := s.comments.DeleteByListing(ctx, ref); err != nil {
		return err
	}
	if err := s.favorites.DeleteByListing(ctx, ref); err != nil {
		return err
	}
	switch ref.Type {
	case models.ContentAccommodation:
		err = s.accommodations.Delete(ctx, ref.ID)
	case models.ContentExperience:
		err = s.experiences.Delete(ctx, ref.ID)
	}
	if err != nil {
		return err
	}
	cache.InvalidateListings(ctx, string(ref.Type))

	if actor.IsAdmin() {
		recordAudit(ctx, s.audit, auditEntry(actor, models.AuditListingDeleted, string(ref.Type), ref.ID, map[string]any{
			"title":   summary.Title,
			"host_id": summary.HostID,
		}))
	}
	return nil
}

func resourceName(t models.ContentType) string {
	if t == models.ContentExperience {
		return "Experience"
	}
	return "Accommodation"
}

func browseCacheArgs(filter repository.ListingFilter, limit, offset int) string {
	b, _ := json.Marshal(filter)
	return fmt.Sprintf("%s:%d:%d", b, limit, offset)
}
