package server

import (
	"encoding/json"

	"resort/internal/analytics"
	"resort/internal/models"
	"resort/internal/service"

	"github.com/gofiber/fiber/v2"
)

// RPC names handled outside the analytics package.
const (
	rpcUpdateUserRole        = "update_user_role"
	rpcLogAuditEvent         = "log_audit_event"
	rpcRecordEngagementEvent = "record_engagement_event"
)

type rpcArgs struct {
	Days   int    `json:"days"`
	Limit  int    `json:"limit"`
	Weeks  int    `json:"weeks"`
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
}

// RecordEngagementEvent handles POST /api/rpc/record_engagement_event
// @Summary Record a listing interaction
// @Description Public. The caller's profile is attached when a valid token is sent.
// @Tags rpc
// @Accept json
// @Produce json
// @Param request body service.EngagementInput true "Event"
// @Success 201 {object} models.EngagementEvent
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /rpc/record_engagement_event [post]
func (s *Server) RecordEngagementEvent(c *fiber.Ctx) error {
	var in service.EngagementInput
	if err := parseBody(c, &in); err != nil {
		return nil
	}
	var profileID *uint
	if id := currentUserID(c); id != 0 {
		profileID = &id
	}
	event, err := s.engagementService.Record(c.UserContext(), profileID, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// CallRPC handles POST /api/rpc/:name for the admin RPCs
// @Summary Call an admin RPC
// @Description get_trending_content, get_recent_engagement, get_content_analytics, get_retention_metrics, update_user_role or log_audit_event
// @Tags rpc
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param name path string true "RPC name"
// @Param request body object false "Arguments"
// @Success 200 {object} analytics.Result
// @Failure 404 {object} models.ErrorResponse
// @Router /rpc/{name} [post]
func (s *Server) CallRPC(c *fiber.Ctx) error {
	name := c.Params("name")
	body := c.Body()
	if len(body) == 0 {
		body = []byte("{}")
	}

	if name == rpcLogAuditEvent {
		var in service.AuditEventInput
		if err := json.Unmarshal(body, &in); err != nil {
			return respondError(c, models.NewValidationError("Invalid RPC arguments"))
		}
		entry, err := s.adminService.LogAuditEvent(c.UserContext(), actor(c), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": entry})
	}

	var args rpcArgs
	if err := json.Unmarshal(body, &args); err != nil {
		return respondError(c, models.NewValidationError("Invalid RPC arguments"))
	}

	var (
		res *analytics.Result
		err error
	)
	switch name {
	case analytics.RPCTrending:
		res, err = s.analyticsService.Trending(c.UserContext(), args.Days, args.Limit)
	case analytics.RPCRecentEngagement:
		res, err = s.analyticsService.RecentEngagement(c.UserContext(), args.Days)
	case analytics.RPCContent:
		res, err = s.analyticsService.ContentAnalytics(c.UserContext())
	case analytics.RPCRetention:
		res, err = s.analyticsService.Retention(c.UserContext(), args.Weeks)
	case rpcUpdateUserRole:
		profile, err := s.adminService.UpdateUserRole(c.UserContext(), actor(c), args.UserID, models.ProfileRole(args.Role))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"data": profile})
	default:
		return respondError(c, models.NewNotFoundError("RPC", name))
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// AdminTrending handles GET /api/admin/analytics/trending
// @Summary Trending listings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days (default 7)"
// @Param limit query int false "Rows (default 10)"
// @Success 200 {object} analytics.Result
// @Router /admin/analytics/trending [get]
func (s *Server) AdminTrending(c *fiber.Ctx) error {
	res, err := s.analyticsService.Trending(c.UserContext(), c.QueryInt("days"), c.QueryInt("limit"))
	return s.analyticsResponse(c, res, err)
}

// AdminEngagement handles GET /api/admin/analytics/engagement
// @Summary Daily engagement
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window in days (default 14)"
// @Success 200 {object} analytics.Result
// @Router /admin/analytics/engagement [get]
func (s *Server) AdminEngagement(c *fiber.Ctx) error {
	res, err := s.analyticsService.RecentEngagement(c.UserContext(), c.QueryInt("days"))
	return s.analyticsResponse(c, res, err)
}

// AdminContentAnalytics handles GET /api/admin/analytics/content
// @Summary Content totals per listing type
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} analytics.Result
// @Router /admin/analytics/content [get]
func (s *Server) AdminContentAnalytics(c *fiber.Ctx) error {
	res, err := s.analyticsService.ContentAnalytics(c.UserContext())
	return s.analyticsResponse(c, res, err)
}

// AdminRetention handles GET /api/admin/analytics/retention
// @Summary Weekly signup cohorts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param weeks query int false "Cohort weeks (default 8)"
// @Success 200 {object} analytics.Result
// @Router /admin/analytics/retention [get]
func (s *Server) AdminRetention(c *fiber.Ctx) error {
	res, err := s.analyticsService.Retention(c.UserContext(), c.QueryInt("weeks"))
	return s.analyticsResponse(c, res, err)
}

func (s *Server) analyticsResponse(c *fiber.Ctx, res *analytics.Result, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
