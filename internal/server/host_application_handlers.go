package server

import (
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SubmitHostApplication handles POST /api/host-applications
// @Summary Apply to become a host
// @Description A profile may hold one application. Resubmitting returns 409 EXISTING_APPLICATION with the existing application in details.
// @Tags host-applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.HostApplicationInput true "Application"
// @Success 201 {object} models.HostApplication
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /host-applications [post]
func (s *Server) SubmitHostApplication(c *fiber.Ctx) error {
	var in service.HostApplicationInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	app, err := s.applicationService.Submit(c.UserContext(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(app)
}

// GetMyHostApplication handles GET /api/host-applications/me
// @Summary Get my host application
// @Tags host-applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.HostApplication
// @Failure 404 {object} models.ErrorResponse
// @Router /host-applications/me [get]
func (s *Server) GetMyHostApplication(c *fiber.Ctx) error {
	app, err := s.applicationService.GetMine(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}
