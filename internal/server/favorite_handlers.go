package server

import (
	"resort/internal/models"

	"github.com/gofiber/fiber/v2"
)

// favorites routes run behind OptionalAuth so anonymous callers get
// AUTH_REQUIRED instead of a bare 401, which clients answer with a sign-in prompt.
func requireSession(c *fiber.Ctx) (uint, bool) {
	id := currentUserID(c)
	if id == 0 {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewAuthRequiredError("Sign in to save favorites"))
		return 0, false
	}
	return id, true
}

// GetFavorites handles GET /api/favorites
// @Summary List my favorites
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Favorite
// @Failure 401 {object} models.ErrorResponse
// @Router /favorites [get]
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	profileID, ok := requireSession(c)
	if !ok {
		return nil
	}
	favs, err := s.favoriteService.List(c.UserContext(), profileID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(favs)
}

// AddFavorite handles POST /api/favorites/:kind/:id
// @Summary Save a listing
// @Tags favorites
// @Produce json
// @Security BearerAuth
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Success 201 {object} models.Favorite
// @Failure 401 {object} models.ErrorResponse
// @Router /favorites/{kind}/{id} [post]
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	profileID, ok := requireSession(c)
	if !ok {
		return nil
	}
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	fav, err := s.favoriteService.Add(c.UserContext(), profileID, ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fav)
}

// RemoveFavorite handles DELETE /api/favorites/:kind/:id
// @Summary Unsave a listing
// @Tags favorites
// @Security BearerAuth
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Router /favorites/{kind}/{id} [delete]
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	profileID, ok := requireSession(c)
	if !ok {
		return nil
	}
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	if err := s.favoriteService.Remove(c.UserContext(), profileID, ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
