package server

import (
	"io"
	"strings"

	"resort/internal/models"
	"resort/internal/storage"

	"github.com/gofiber/fiber/v2"
)

func parseBucket(c *fiber.Ctx) (storage.Bucket, bool) {
	bucket, ok := storage.ParseBucket(c.Params("bucket"))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Unknown storage bucket"))
	}
	return bucket, ok
}

// UploadObject handles POST /api/storage/:bucket
// @Summary Upload an image
// @Description Decodes JPEG, PNG, GIF or WebP, downscales to 2048px and stores WebP under <bucket>/<profile_id>/
// @Tags storage
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param bucket path string true "accommodations, experiences, avatars or messages"
// @Param file formData file true "Image file"
// @Success 201 {object} storage.Object
// @Failure 400 {object} models.ErrorResponse
// @Router /storage/{bucket} [post]
func (s *Server) UploadObject(c *fiber.Ctx) error {
	bucket, ok := parseBucket(c)
	if !ok {
		return nil
	}
	file, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("No file uploaded"))
	}
	if file.Size > s.store.MaxBytes() {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("File too large"))
	}

	src, err := file.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unable to read uploaded file"))
	}

	obj, err := s.store.Upload(c.UserContext(), bucket, storage.UploadInput{
		ProfileID:   currentUserID(c),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(obj)
}

// DeleteObject handles DELETE /api/storage/:bucket/*
// @Summary Delete an uploaded object
// @Description Owners delete objects under their own profile prefix; admins delete any
// @Tags storage
// @Security BearerAuth
// @Param bucket path string true "Bucket"
// @Param path path string true "Object path, <profile_id>/<name>.webp"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Router /storage/{bucket}/{path} [delete]
func (s *Server) DeleteObject(c *fiber.Ctx) error {
	bucket, ok := parseBucket(c)
	if !ok {
		return nil
	}
	objectPath := strings.TrimPrefix(c.Params("*"), "/")
	if objectPath == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Object path is required"))
	}
	a := actor(c)
	if err := s.store.Delete(c.UserContext(), a.ProfileID, a.IsAdmin(), bucket, objectPath); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
