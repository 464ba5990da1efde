package server

import (
	"io"
	"time"

	"quad/internal/models"
	"quad/internal/service"

	"github.com/gofiber/fiber/v2"
)

// UploadImage handles POST /api/media/images. Accepts a multipart form with
// a "file" field, stores the content-addressed master, and queues variant
// generation. Re-uploading identical bytes returns the existing record.
func (s *Server) UploadImage(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("A file upload is required"))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}
	defer func() { _ = f.Close() }()

	content, err := io.ReadAll(f)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Could not read uploaded file"))
	}

	img, err := s.imageService.Upload(c.Context(), service.UploadImageInput{
		UserID:      userID,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.imageStatusResponse(img))
}

// GetImageStatus handles GET /api/media/images/:hash
func (s *Server) GetImageStatus(c *fiber.Ctx) error {
	hash := c.Params("hash")

	img, err := s.imageService.GetByHashWithVariants(c.Context(), hash)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(s.imageStatusResponse(img))
}

// ServeImage handles GET /media/i/:hash/:file without authentication. Image
// URLs are unguessable by construction (content hash), matching the usual
// public-CDN posture for user media.
func (s *Server) ServeImage(c *fiber.Ctx) error {
	hash := c.Params("hash")
	filename := c.Params("file")

	img, fullPath, err := s.imageService.ResolveForServing(c.Context(), hash, filename)
	if err != nil {
		return respondServiceError(c, err)
	}

	s.imageService.UpdateLastAccessed(c.Context(), img.ID)

	// Masters are immutable once written, so long cache lifetimes are safe.
	c.Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.SendFile(fullPath)
}

// imageStatusResponse shapes an image row for API responses, attaching the
// master URL and the variant URL map.
func (s *Server) imageStatusResponse(img *models.Image) fiber.Map {
	resp := fiber.Map{
		"id":         img.ID,
		"hash":       img.Hash,
		"status":     img.Status,
		"width":      img.Width,
		"height":     img.Height,
		"url":        s.imageService.BuildMasterImageURL(img.Hash),
		"variants":   s.imageService.BuildVariantsMap(img.Hash, img.Variants),
		"created_at": img.CreatedAt.UTC().Format(time.RFC3339),
	}
	return resp
}
