package server

import (
	"strings"

	"resort/internal/featureflags"
	"resort/internal/models"

	"github.com/gofiber/fiber/v2"
)

const defaultThreadLimit = 50

// GetContacts handles GET /api/messages/contacts
// @Summary List message contacts
// @Description Every profile the caller can message, with last message and unread count
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Contact
// @Router /messages/contacts [get]
func (s *Server) GetContacts(c *fiber.Ctx) error {
	contacts, err := s.messageService.Contacts(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(contacts)
}

// GetUnreadCount handles GET /api/messages/unread-count
// @Summary Unread message count
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{count=int}
// @Router /messages/unread-count [get]
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	n, err := s.messageService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// GetThread handles GET /api/messages/:contactId
// @Summary Conversation with a contact
// @Description Messages between the caller and contactId, oldest first
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param contactId path int true "Contact profile ID"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Message
// @Router /messages/{contactId} [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "contactId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultThreadLimit)
	msgs, err := s.messageService.Thread(c.UserContext(), currentUserID(c), contactID, page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// SendMessage handles POST /api/messages/:contactId
// @Summary Send a direct message
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param contactId path int true "Recipient profile ID"
// @Param request body object{content=string,image_url=string} true "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/{contactId} [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	recipientID, err := s.parseID(c, "contactId")
	if err != nil {
		return nil
	}
	var req struct {
		Content  string `json:"content"`
		ImageURL string `json:"image_url"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	senderID := currentUserID(c)
	if strings.TrimSpace(req.ImageURL) != "" && !s.featureFlags.Enabled(featureflags.MessageImages, senderID) {
		return respondError(c, models.NewValidationError("Image attachments are disabled"))
	}
	msg, err := s.messageService.Send(c.UserContext(), senderID, recipientID, req.Content, req.ImageURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkThreadRead handles POST /api/messages/:contactId/read
// @Summary Mark a conversation read
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param contactId path int true "Contact profile ID"
// @Success 200 {object} object{updated=int}
// @Router /messages/{contactId}/read [post]
func (s *Server) MarkThreadRead(c *fiber.Ctx) error {
	contactID, err := s.parseID(c, "contactId")
	if err != nil {
		return nil
	}
	n, err := s.messageService.MarkRead(c.UserContext(), currentUserID(c), contactID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
