package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civigate/eservices-portal/internal/auth"
	"github.com/civigate/eservices-portal/internal/docstore"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// DocumentsHandler forwards uploads to the document store and hands the
// reference back to the client for use in an application payload.
type DocumentsHandler struct {
	store docstore.Adapter
}

// NewDocumentsHandler constructs handler.
func NewDocumentsHandler(store docstore.Adapter) *DocumentsHandler {
	return &DocumentsHandler{store: store}
}

// Upload POST /documents.
func (h *DocumentsHandler) Upload(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file field required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.MapError(err)
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	ref, err := h.store.Upload(c.Context(), fileHeader.Filename, contentType, file)
	if err != nil {
		return apperrors.NewStorageError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"id":           ref.ID,
		"name":         fileHeader.Filename,
		"url":          ref.URL,
		"content_type": ref.ContentType,
		"size_bytes":   ref.SizeBytes,
	}})
}
