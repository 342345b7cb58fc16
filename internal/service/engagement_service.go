package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"resort/internal/middleware"
	"resort/internal/models"
	"resort/internal/observability"
	"resort/internal/repository"

	"gorm.io/datatypes"
)

const maxEngagementMetadataBytes = 2048

// EngagementInput is a public engagement event submission.
type EngagementInput struct {
	ContentType string          `json:"content_type"`
	ContentID   uint            `json:"content_id"`
	EventType   string          `json:"event_type"`
	Metadata    json.RawMessage `json:"metadata"`
}

// EngagementService records listing interactions for analytics.
type EngagementService struct {
	events repository.EngagementRepository
}

// NewEngagementService returns a new EngagementService.
func NewEngagementService(events repository.EngagementRepository) *EngagementService {
	return &EngagementService{events: events}
}

// Record validates and stores one event. profileID is nil for anonymous visitors.
func (s *EngagementService) Record(ctx context.Context, profileID *uint, in EngagementInput) (*models.EngagementEvent, error) {
	contentType, ok := models.ParseContentType(in.ContentType)
	if !ok {
		return nil, models.NewValidationError("content_type must be accommodation or experience")
	}
	eventType := models.EngagementType(in.EventType)
	if !eventType.Valid() {
		return nil, models.NewValidationError("event_type must be one of view, favorite, comment, share, inquiry")
	}
	if in.ContentID == 0 {
		return nil, models.NewValidationError("content_id is required")
	}
	if len(in.Metadata) > maxEngagementMetadataBytes {
		return nil, models.NewValidationError("metadata too large")
	}
	var metadata datatypes.JSON
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		if !json.Valid(in.Metadata) {
			return nil, models.NewValidationError("metadata must be valid JSON")
		}
		metadata = datatypes.JSON(in.Metadata)
	}

	event := &models.EngagementEvent{
		ProfileID:   profileID,
		ContentType: contentType,
		ContentID:   in.ContentID,
		EventType:   eventType,
		Metadata:    metadata,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}
	observability.EngagementEvents.WithLabelValues(string(eventType)).Inc()
	return event, nil
}

// track records a side-effect event. Failures are logged only.
func (s *EngagementService) track(ctx context.Context, profileID *uint, ref models.ListingRef, eventType models.EngagementType) {
	if s == nil {
		return
	}
	event := &models.EngagementEvent{
		ProfileID:   profileID,
		ContentType: ref.Type,
		ContentID:   ref.ID,
		EventType:   eventType,
	}
	if err := s.events.Create(ctx, event); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record engagement event",
			slog.String("event_type", string(eventType)),
			slog.Uint64("content_id", uint64(ref.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.EngagementEvents.WithLabelValues(string(eventType)).Inc()
}
