package server

import (
	"resort/internal/models"
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/profiles/me
// @Summary Get my profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Profile
// @Router /profiles/me [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	profile, err := s.profileService.Get(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// GetProfile handles GET /api/profiles/:id
// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Param id path int true "Profile ID"
// @Success 200 {object} models.ProfileSummary
// @Failure 404 {object} models.ErrorResponse
// @Router /profiles/{id} [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.profileService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if profile.IsBanned {
		return respondError(c, models.NewNotFoundError("Profile", id))
	}
	return c.JSON(fiber.Map{
		"id":         profile.ID,
		"username":   profile.Username,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
		"bio":        profile.Bio,
		"location":   profile.Location,
		"interests":  profile.Interests,
		"role":       profile.Role,
		"created_at": profile.CreatedAt,
	})
}

// UpdateMyProfile handles PUT /api/profiles/me
// @Summary Update my profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{username=string,full_name=string,avatar_url=string,bio=string,location=string,interests=[]string} true "Profile fields"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /profiles/me [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req struct {
		Username  *string  `json:"username"`
		FullName  *string  `json:"full_name"`
		AvatarURL *string  `json:"avatar_url"`
		Bio       *string  `json:"bio"`
		Location  *string  `json:"location"`
		Interests []string `json:"interests"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.profileService.Update(c.UserContext(), currentUserID(c), service.UpdateProfileInput{
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Bio:       req.Bio,
		Location:  req.Location,
		Interests: req.Interests,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}
