package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civigate/eservices-portal/internal/api/dto"
	"github.com/civigate/eservices-portal/internal/auth"
	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/repository"
	"github.com/civigate/eservices-portal/internal/service"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// ServicesHandler serves the service catalog.
type ServicesHandler struct {
	catalog *service.CatalogService
}

// NewServicesHandler constructs handler.
func NewServicesHandler(catalog *service.CatalogService) *ServicesHandler {
	return &ServicesHandler{catalog: catalog}
}

// Create POST /services (admin).
func (h *ServicesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.catalog.CreateService(c.Context(), principal.Caller(), service.ServiceInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		RequiredDocuments: req.RequiredDocuments,
		ProcessingTime:    req.ProcessingTime,
		Fee:               req.Fee,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": serviceResponse(svc)})
}

// Update PATCH /services/:id (admin).
func (h *ServicesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	svc, err := h.catalog.UpdateService(c.Context(), principal.Caller(), c.Params("id"), service.ServiceUpdate{
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		RequiredDocuments: req.RequiredDocuments,
		ProcessingTime:    req.ProcessingTime,
		Fee:               req.Fee,
		IsActive:          req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceResponse(svc)})
}

// List GET /services.
func (h *ServicesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := repository.ServiceFilter{}
	if category := c.Query("category"); category != "" {
		cat := domain.ServiceCategory(category)
		if !cat.Valid() {
			return apperrors.NewValidationError("unknown service category", map[string]any{"category": category})
		}
		filter.Category = &cat
	}
	if c.Query("active_only") == "true" {
		filter.ActiveOnly = true
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize

	list, err := h.catalog.ListServices(c.Context(), principal.Caller(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.ServiceResponse, 0, len(list))
	for i := range list {
		items = append(items, serviceResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /services/:id.
func (h *ServicesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	svc, err := h.catalog.GetService(c.Context(), principal.Caller(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": serviceResponse(svc)})
}

func serviceResponse(svc *domain.Service) dto.ServiceResponse {
	return dto.ServiceResponse{
		ID:                svc.ID,
		Title:             svc.Title,
		Description:       svc.Description,
		Category:          svc.Category,
		RequiredDocuments: svc.RequiredDocuments,
		ProcessingTime:    svc.ProcessingTime,
		Fee:               svc.Fee,
		IsActive:          svc.IsActive,
		CreatedAt:         svc.CreatedAt,
		UpdatedAt:         svc.UpdatedAt,
	}
}
