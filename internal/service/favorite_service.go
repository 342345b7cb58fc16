package service

import (
	"context"

	"resort/internal/models"
	"resort/internal/repository"
)

// FavoriteService manages saved listings.
type FavoriteService struct {
	favorites  repository.FavoriteRepository
	listings   ListingLookup
	engagement *EngagementService
}

// NewFavoriteService returns a new FavoriteService.
func NewFavoriteService(favorites repository.FavoriteRepository, listings ListingLookup, engagement *EngagementService) *FavoriteService {
	return &FavoriteService{favorites: favorites, listings: listings, engagement: engagement}
}

// List returns profileID's favorites, newest first.
func (s *FavoriteService) List(ctx context.Context, profileID uint) ([]models.Favorite, error) {
	favs, err := s.favorites.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []models.Favorite{}
	}
	return favs, nil
}

// Add saves a published listing. Saving twice is a no-op.
func (s *FavoriteService) Add(ctx context.Context, profileID uint, ref models.ListingRef) (*models.Favorite, error) {
	if _, err := s.listings.PublishedListing(ctx, ref); err != nil {
		return nil, err
	}
	fav := &models.Favorite{ProfileID: profileID, ContentType: ref.Type, ContentID: ref.ID}
	created, err := s.favorites.Add(ctx, fav)
	if err != nil {
		return nil, err
	}
	if created {
		s.engagement.track(ctx, &profileID, ref, models.EngagementFavorite)
	}
	return fav, nil
}

// Remove unsaves a listing. Removing a missing favorite succeeds.
func (s *FavoriteService) Remove(ctx context.Context, profileID uint, ref models.ListingRef) error {
	return s.favorites.Remove(ctx, profileID, ref)
}
