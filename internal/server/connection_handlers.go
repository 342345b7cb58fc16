package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetTribe handles GET /api/tribe
// @Summary Tribe directory
// @Description Every other profile split into connected and unconnected, with pending state
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Tribe
// @Router /tribe [get]
func (s *Server) GetTribe(c *fiber.Ctx) error {
	tribe, err := s.connectionService.Tribe(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tribe)
}

// GetConnections handles GET /api/connections
// @Summary List accepted connections
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections [get]
func (s *Server) GetConnections(c *fiber.Ctx) error {
	conns, err := s.connectionService.Accepted(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conns)
}

// GetIncomingRequests handles GET /api/connections/requests
// @Summary List pending requests addressed to me
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections/requests [get]
func (s *Server) GetIncomingRequests(c *fiber.Ctx) error {
	conns, err := s.connectionService.Incoming(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conns)
}

// GetSentRequests handles GET /api/connections/requests/sent
// @Summary List pending requests I sent
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections/requests/sent [get]
func (s *Server) GetSentRequests(c *fiber.Ctx) error {
	conns, err := s.connectionService.Sent(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conns)
}

// SendConnectionRequest handles POST /api/connections/requests
// @Summary Send a connection request
// @Tags connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{invitee_id=int,message=string} true "Request"
// @Success 201 {object} models.Connection
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /connections/requests [post]
func (s *Server) SendConnectionRequest(c *fiber.Ctx) error {
	var req struct {
		InviteeID uint   `json:"invitee_id"`
		Message   string `json:"message"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	conn, err := s.connectionService.Request(c.UserContext(), currentUserID(c), req.InviteeID, req.Message)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conn)
}

// AcceptConnectionRequest handles POST /api/connections/requests/:requestId/accept
// @Summary Accept a connection request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 200 {object} models.Connection
// @Failure 404 {object} models.ErrorResponse
// @Router /connections/requests/{requestId}/accept [post]
func (s *Server) AcceptConnectionRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	conn, err := s.connectionService.Accept(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(conn)
}

// DeclineConnectionRequest handles POST /api/connections/requests/:requestId/decline
// @Summary Decline a connection request
// @Tags connections
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 204
// @Router /connections/requests/{requestId}/decline [post]
func (s *Server) DeclineConnectionRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	if _, err := s.connectionService.Decline(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CancelConnectionRequest handles DELETE /api/connections/requests/:requestId
// @Summary Cancel a request I sent
// @Tags connections
// @Security BearerAuth
// @Param requestId path int true "Request ID"
// @Success 204
// @Router /connections/requests/{requestId} [delete]
func (s *Server) CancelConnectionRequest(c *fiber.Ctx) error {
	id, err := s.parseID(c, "requestId")
	if err != nil {
		return nil
	}
	if _, err := s.connectionService.Cancel(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RemoveConnection handles DELETE /api/connections/:profileId
// @Summary Remove a connection
// @Tags connections
// @Security BearerAuth
// @Param profileId path int true "Connected profile ID"
// @Success 204
// @Router /connections/{profileId} [delete]
func (s *Server) RemoveConnection(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "profileId")
	if err != nil {
		return nil
	}
	if _, err := s.connectionService.Remove(c.UserContext(), currentUserID(c), otherID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
