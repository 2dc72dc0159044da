package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/civigate/eservices-portal/internal/api/dto"
	"github.com/civigate/eservices-portal/internal/auth"
	"github.com/civigate/eservices-portal/internal/domain"
	"github.com/civigate/eservices-portal/internal/repository"
	"github.com/civigate/eservices-portal/internal/service"
	"github.com/civigate/eservices-portal/internal/workflow"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// ApplicationsHandler manages application lifecycle endpoints.
type ApplicationsHandler struct {
	apps *service.ApplicationService
}

// NewApplicationsHandler constructs handler.
func NewApplicationsHandler(apps *service.ApplicationService) *ApplicationsHandler {
	return &ApplicationsHandler{apps: apps}
}

// Create POST /applications.
func (h *ApplicationsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ServiceID == "" {
		return apperrors.NewValidationError("service_id required", nil)
	}

	docs := make([]service.DocumentInput, 0, len(req.Documents))
	for _, doc := range req.Documents {
		docs = append(docs, service.DocumentInput{
			Name:        doc.Name,
			URL:         doc.URL,
			ContentType: doc.ContentType,
			SizeBytes:   doc.SizeBytes,
		})
	}

	app, err := h.apps.Create(c.Context(), principal.Caller(), service.CreateInput{
		ServiceID: req.ServiceID,
		FormData:  req.FormData,
		Documents: docs,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": applicationDetail(app)})
}

// List GET /applications.
func (h *ApplicationsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	list, err := h.apps.List(c.Context(), principal.Caller(), parseApplicationQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.ApplicationSummary, 0, len(list))
	for i := range list {
		items = append(items, applicationSummary(&list[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /applications/:id.
func (h *ApplicationsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	app, err := h.apps.Get(c.Context(), principal.Caller(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationDetail(app)})
}

// Audit GET /applications/:id/audit.
func (h *ApplicationsHandler) Audit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	trail, err := h.apps.AuditTrail(c.Context(), principal.Caller(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AuditEntryResponse, 0, len(trail))
	for _, entry := range trail {
		items = append(items, dto.AuditEntryResponse{
			ID:         entry.ID,
			ActorID:    entry.ActorID,
			ActorRole:  entry.ActorRole,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Remark:     entry.Remark,
			CreatedAt:  entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// Transition POST /applications/:id/transition.
func (h *ApplicationsHandler) Transition(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ToStatus == "" {
		return apperrors.NewValidationError("to_status required", nil)
	}

	app, err := h.apps.Transition(c.Context(), principal.Caller(), c.Params("id"), workflow.TransitionInput{
		To:         req.ToStatus,
		Remark:     req.Remark,
		AssigneeID: req.AssigneeID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationDetail(app)})
}

// AddRemark POST /applications/:id/remarks.
func (h *ApplicationsHandler) AddRemark(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RemarkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	app, err := h.apps.AddApplicantRemark(c.Context(), principal.Caller(), c.Params("id"), req.Remark)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": applicationDetail(app)})
}

func parseApplicationQuery(c *fiber.Ctx) repository.ApplicationFilter {
	filter := repository.ApplicationFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.ApplicationStatus(strings.TrimSpace(part)))
		}
	}
	if serviceID := c.Query("service_id"); serviceID != "" {
		filter.ServiceID = &serviceID
	}
	if assigneeID := c.Query("assignee_id"); assigneeID != "" {
		filter.AssigneeID = &assigneeID
	}
	if from := parseTime(c.Query("submitted_from")); from != nil {
		filter.SubmittedFrom = from
	}
	if to := parseTime(c.Query("submitted_to")); to != nil {
		filter.SubmittedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func applicationSummary(app *domain.Application) dto.ApplicationSummary {
	return dto.ApplicationSummary{
		ID:          app.ID,
		ServiceID:   app.ServiceID,
		ServiceName: app.ServiceName,
		ApplicantID: app.Applicant.ID,
		Status:      app.Status,
		AssigneeID:  app.AssigneeID,
		SubmittedAt: app.SubmittedAt,
		UpdatedAt:   app.UpdatedAt,
		CompletedAt: app.CompletedAt,
	}
}

func applicationDetail(app *domain.Application) dto.ApplicationDetail {
	docs := make([]dto.DocumentResponse, 0, len(app.Documents))
	for _, doc := range app.Documents {
		docs = append(docs, dto.DocumentResponse{
			ID:          doc.ID,
			Name:        doc.Name,
			URL:         doc.URL,
			ContentType: doc.ContentType,
			SizeBytes:   doc.SizeBytes,
			UploadedAt:  doc.UploadedAt,
		})
	}
	return dto.ApplicationDetail{
		ID:          app.ID,
		ServiceID:   app.ServiceID,
		ServiceName: app.ServiceName,
		Applicant: dto.ApplicantResponse{
			ID:    app.Applicant.ID,
			Name:  app.Applicant.Name,
			Email: app.Applicant.Email,
			Phone: app.Applicant.Phone,
		},
		Status:      app.Status,
		FormData:    app.FormData,
		Documents:   docs,
		Remarks:     app.Remarks,
		AssigneeID:  app.AssigneeID,
		SubmittedAt: app.SubmittedAt,
		UpdatedAt:   app.UpdatedAt,
		CompletedAt: app.CompletedAt,
	}
}
