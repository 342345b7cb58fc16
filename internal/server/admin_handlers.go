package server

import (
	"strings"
	"time"

	"resort/internal/models"
	"resort/internal/repository"
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultAdminPageSize = 25

// pageResponse wraps a paginated admin listing.
type pageResponse struct {
	Data   any   `json:"data"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// AdminDashboard handles GET /api/admin/dashboard
// @Summary Admin dashboard counts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Dashboard
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/dashboard [get]
func (s *Server) AdminDashboard(c *fiber.Ctx) error {
	d, err := s.adminService.Dashboard(c.UserContext(), actor(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(d)
}

// AdminListUsers handles GET /api/admin/users
// @Summary Search users
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Username, full name or email substring"
// @Param role query string false "guest, host or admin"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} pageResponse
// @Router /admin/users [get]
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	filter := repository.ProfileFilter{
		Query: strings.TrimSpace(c.Query("q")),
		Role:  models.ProfileRole(c.Query("role")),
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return respondError(c, models.NewValidationError("Unknown role"))
	}
	page := parsePagination(c, defaultAdminPageSize)
	users, total, err := s.adminService.ListUsers(c.UserContext(), actor(c), filter, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pageResponse{Data: users, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// AdminUpdateUserRole handles PUT /api/admin/users/:id/role
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} models.Profile
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (s *Server) AdminUpdateUserRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	profile, err := s.adminService.UpdateUserRole(c.UserContext(), actor(c), id, models.ProfileRole(req.Role))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// AdminBanUser handles POST /api/admin/users/:id/ban
// @Summary Ban a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} models.Profile
// @Router /admin/users/{id}/ban [post]
func (s *Server) AdminBanUser(c *fiber.Ctx) error {
	return s.setBanned(c, true)
}

// AdminUnbanUser handles POST /api/admin/users/:id/unban
// @Summary Unban a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "Profile ID"
// @Success 200 {object} models.Profile
// @Router /admin/users/{id}/unban [post]
func (s *Server) AdminUnbanUser(c *fiber.Ctx) error {
	return s.setBanned(c, false)
}

func (s *Server) setBanned(c *fiber.Ctx, banned bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.adminService.SetBanned(c.UserContext(), actor(c), id, banned)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(profile)
}

// AdminListHostApplications handles GET /api/admin/host-applications
// @Summary Host application queue
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or declined"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} pageResponse
// @Router /admin/host-applications [get]
func (s *Server) AdminListHostApplications(c *fiber.Ctx) error {
	page := parsePagination(c, defaultAdminPageSize)
	status := models.HostApplicationStatus(c.Query("status"))
	apps, total, err := s.applicationService.List(c.UserContext(), actor(c), status, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pageResponse{Data: apps, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// AdminApproveHostApplication handles POST /api/admin/host-applications/:id/approve
// @Summary Approve a host application
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body object{notes=string} false "Reviewer notes"
// @Success 200 {object} models.HostApplication
// @Failure 409 {object} models.ErrorResponse
// @Router /admin/host-applications/{id}/approve [post]
func (s *Server) AdminApproveHostApplication(c *fiber.Ctx) error {
	return s.reviewHostApplication(c, true)
}

// AdminDeclineHostApplication handles POST /api/admin/host-applications/:id/decline
// @Summary Decline a host application
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body object{notes=string} true "Reason"
// @Success 200 {object} models.HostApplication
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/host-applications/{id}/decline [post]
func (s *Server) AdminDeclineHostApplication(c *fiber.Ctx) error {
	return s.reviewHostApplication(c, false)
}

func (s *Server) reviewHostApplication(c *fiber.Ctx, approve bool) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Notes string `json:"notes"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	var app *models.HostApplication
	if approve {
		app, err = s.applicationService.Approve(c.UserContext(), actor(c), id, req.Notes)
	} else {
		app, err = s.applicationService.Decline(c.UserContext(), actor(c), id, req.Notes)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(app)
}

// AdminListAuditLogs handles GET /api/admin/audit-logs
// @Summary Audit log viewer
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param action query string false "Action"
// @Param entity_type query string false "Entity type"
// @Param actor_id query int false "Actor profile ID"
// @Param since query string false "RFC3339 lower bound"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} pageResponse
// @Router /admin/audit-logs [get]
func (s *Server) AdminListAuditLogs(c *fiber.Ctx) error {
	filter := repository.AuditLogFilter{
		Action:     strings.TrimSpace(c.Query("action")),
		EntityType: strings.TrimSpace(c.Query("entity_type")),
	}
	if raw := c.Query("actor_id"); raw != "" {
		id := c.QueryInt("actor_id", 0)
		if id <= 0 {
			return respondError(c, models.NewValidationError("Invalid actor ID"))
		}
		filter.ActorID = uint(id)
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return respondError(c, models.NewValidationError("since must be an RFC3339 timestamp"))
		}
		filter.Since = &since
	}
	page := parsePagination(c, defaultAdminPageSize)
	logs, total, err := s.adminService.ListAuditLogs(c.UserContext(), actor(c), filter, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(pageResponse{Data: logs, Total: total, Limit: page.Limit, Offset: page.Offset})
}

// AdminLogAuditEvent handles POST /api/admin/audit-logs
// @Summary Append an audit event
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AuditEventInput true "Audit event"
// @Success 201 {object} models.AuditLog
// @Router /admin/audit-logs [post]
func (s *Server) AdminLogAuditEvent(c *fiber.Ctx) error {
	var in service.AuditEventInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	entry, err := s.adminService.LogAuditEvent(c.UserContext(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// AdminSetPublished handles POST /api/admin/listings/:kind/:id/publish
// @Summary Publish or unpublish a listing
// @Tags admin
// @Accept json
// @Security BearerAuth
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Param request body object{is_published=bool} true "Visibility"
// @Success 204
// @Router /admin/listings/{kind}/{id}/publish [post]
func (s *Server) AdminSetPublished(c *fiber.Ctx) error {
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	var req struct {
		IsPublished *bool `json:"is_published"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.IsPublished == nil {
		return respondError(c, models.NewValidationError("is_published is required"))
	}
	if err := s.listingService.SetPublished(c.UserContext(), actor(c), ref, *req.IsPublished); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminDeleteListing handles DELETE /api/admin/listings/:kind/:id
// @Summary Delete any listing
// @Tags admin
// @Security BearerAuth
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Success 204
// @Router /admin/listings/{kind}/{id} [delete]
func (s *Server) AdminDeleteListing(c *fiber.Ctx) error {
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	if err := s.listingService.DeleteListing(c.UserContext(), actor(c), ref); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AdminSendMessage handles POST /api/admin/messages
// @Summary Message users as admin
// @Description Sends from the admin's profile to recipient_ids, or to every profile when broadcast is true
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.AdminMessageInput true "Message"
// @Success 200 {object} service.AdminMessageResult
// @Router /admin/messages [post]
func (s *Server) AdminSendMessage(c *fiber.Ctx) error {
	var in service.AdminMessageInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	res, err := s.adminService.SendMessage(c.UserContext(), actor(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetFeatureFlags handles GET /api/admin/feature-flags
// @Summary Feature flags
// @Description Configured flags and whether each is on for the caller
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{flags=[]featureflags.Flag}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.featureFlags.List(currentUserID(c))})
}
