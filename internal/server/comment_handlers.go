package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/listings/:kind/:id/comments
// @Summary List listing comments
// @Description Comments on a published listing, oldest first
// @Tags comments
// @Produce json
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /listings/{kind}/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	comments, err := s.commentService.List(c.UserContext(), ref)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// CreateComment handles POST /api/listings/:kind/:id/comments
// @Summary Comment on a listing
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param kind path string true "accommodation or experience"
// @Param id path int true "Listing ID"
// @Param request body object{body=string} true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Router /listings/{kind}/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ref, err := s.parseListingRef(c)
	if err != nil {
		return nil
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	comment, err := s.commentService.Create(c.UserContext(), currentUserID(c), ref, req.Body)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id and DELETE /api/admin/comments/:id
// @Summary Delete a comment
// @Description Authors delete their own comments; admins delete any
// @Tags comments
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.Delete(c.UserContext(), actor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
