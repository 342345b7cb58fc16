package server

import (
	"strconv"
	"strings"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultBrowseLimit = 20

// listingFilter reads browse query parameters. kindParam is property_type
// for accommodations and category for experiences.
func listingFilter(c *fiber.Ctx, kindParam string) (repository.ListingFilter, error) {
	filter := repository.ListingFilter{
		Query:    strings.TrimSpace(c.Query("q")),
		Location: strings.TrimSpace(c.Query("location")),
		Kind:     strings.TrimSpace(c.Query(kindParam)),
		Sort:     c.Query("sort", "newest"),
		Guests:   c.QueryInt("guests", 0),
	}
	switch filter.Sort {
	case "newest", "price_asc", "price_desc":
	default:
		return filter, models.NewValidationError("sort must be newest, price_asc or price_desc")
	}
	for name, dst := range map[string]**float64{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return filter, models.NewValidationError(name + " must be a non-negative number")
		}
		*dst = &v
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return filter, models.NewValidationError("min_price must not exceed max_price")
	}
	return filter, nil
}

// BrowseAccommodations handles GET /api/accommodations
// @Summary Browse accommodations
// @Tags listings
// @Produce json
// @Param q query string false "Search title, description and location"
// @Param location query string false "Location substring"
// @Param min_price query number false "Minimum nightly price"
// @Param max_price query number false "Maximum nightly price"
// @Param guests query int false "Minimum guest capacity"
// @Param property_type query string false "Property type"
// @Param sort query string false "newest, price_asc or price_desc"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Accommodation
// @Router /accommodations [get]
func (s *Server) BrowseAccommodations(c *fiber.Ctx) error {
	filter, err := listingFilter(c, "property_type")
	if err != nil {
		return respondError(c, err)
	}
	page := parsePagination(c, defaultBrowseLimit)
	rows, err := s.listingService.BrowseAccommodations(c.UserContext(), filter, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// GetAccommodation handles GET /api/accommodations/:id
// @Summary Get an accommodation
// @Tags listings
// @Produce json
// @Param id path int true "Accommodation ID"
// @Success 200 {object} models.Accommodation
// @Failure 404 {object} models.ErrorResponse
// @Router /accommodations/{id} [get]
func (s *Server) GetAccommodation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	a, err := s.listingService.GetAccommodation(c.UserContext(), optionalActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(a)
}

// MyAccommodations handles GET /api/accommodations/mine
// @Summary List my accommodations
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Accommodation
// @Router /accommodations/mine [get]
func (s *Server) MyAccommodations(c *fiber.Ctx) error {
	rows, err := s.listingService.MyAccommodations(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// CreateAccommodation handles POST /api/accommodations
// @Summary Create an accommodation
// @Tags listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AccommodationInput true "Accommodation"
// @Success 201 {object} models.Accommodation
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /accommodations [post]
func (s *Server) CreateAccommodation(c *fiber.Ctx) error {
	var in service.AccommodationInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	a, err := s.listingService.CreateAccommodation(c.UserContext(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(a)
}

// UpdateAccommodation handles PUT /api/accommodations/:id
// @Summary Update an accommodation
// @Tags listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Accommodation ID"
// @Param request body service.AccommodationInput true "Accommodation"
// @Success 200 {object} models.Accommodation
// @Router /accommodations/{id} [put]
func (s *Server) UpdateAccommodation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.AccommodationInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	a, err := s.listingService.UpdateAccommodation(c.UserContext(), actor(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(a)
}

// DeleteAccommodation handles DELETE /api/accommodations/:id
// @Summary Delete an accommodation
// @Tags listings
// @Security BearerAuth
// @Param id path int true "Accommodation ID"
// @Success 204
// @Router /accommodations/{id} [delete]
func (s *Server) DeleteAccommodation(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref := models.ListingRef{Type: models.ContentAccommodation, ID: id}
	if err := s.listingService.DeleteListing(c.UserContext(), actor(c), ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// BrowseExperiences handles GET /api/experiences
// @Summary Browse experiences
// @Tags listings
// @Produce json
// @Param q query string false "Search title, description and location"
// @Param location query string false "Location substring"
// @Param min_price query number false "Minimum price"
// @Param max_price query number false "Maximum price"
// @Param guests query int false "Minimum participant capacity"
// @Param category query string false "Category"
// @Param sort query string false "newest, price_asc or price_desc"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Experience
// @Router /experiences [get]
func (s *Server) BrowseExperiences(c *fiber.Ctx) error {
	filter, err := listingFilter(c, "category")
	if err != nil {
		return respondError(c, err)
	}
	page := parsePagination(c, defaultBrowseLimit)
	rows, err := s.listingService.BrowseExperiences(c.UserContext(), filter, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// GetExperience handles GET /api/experiences/:id
// @Summary Get an experience
// @Tags listings
// @Produce json
// @Param id path int true "Experience ID"
// @Success 200 {object} models.Experience
// @Failure 404 {object} models.ErrorResponse
// @Router /experiences/{id} [get]
func (s *Server) GetExperience(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	e, err := s.listingService.GetExperience(c.UserContext(), optionalActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(e)
}

// MyExperiences handles GET /api/experiences/mine
// @Summary List my experiences
// @Tags listings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Experience
// @Router /experiences/mine [get]
func (s *Server) MyExperiences(c *fiber.Ctx) error {
	rows, err := s.listingService.MyExperiences(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// CreateExperience handles POST /api/experiences
// @Summary Create an experience
// @Tags listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ExperienceInput true "Experience"
// @Success 201 {object} models.Experience
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /experiences [post]
func (s *Server) CreateExperience(c *fiber.Ctx) error {
	var in service.ExperienceInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	e, err := s.listingService.CreateExperience(c.UserContext(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// UpdateExperience handles PUT /api/experiences/:id
// @Summary Update an experience
// @Tags listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Experience ID"
// @Param request body service.ExperienceInput true "Experience"
// @Success 200 {object} models.Experience
// @Router /experiences/{id} [put]
func (s *Server) UpdateExperience(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.ExperienceInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	e, err := s.listingService.UpdateExperience(c.UserContext(), actor(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(e)
}

// DeleteExperience handles DELETE /api/experiences/:id
// @Summary Delete an experience
// @Tags listings
// @Security BearerAuth
// @Param id path int true "Experience ID"
// @Success 204
// @Router /experiences/{id} [delete]
func (s *Server) DeleteExperience(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ref := models.ListingRef{Type: models.ContentExperience, ID: id}
	if err := s.listingService.DeleteListing(c.UserContext(), actor(c), ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
