package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/civigate/eservices-portal/internal/api/dto"
	"github.com/civigate/eservices-portal/internal/service"
	apperrors "github.com/civigate/eservices-portal/pkg/errorutil"
)

// UsersHandler serves registration and login.
type UsersHandler struct {
	authSvc *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authSvc *service.AuthService) *UsersHandler {
	return &UsersHandler{authSvc: authSvc}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := map[string]any{}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	if !strings.Contains(req.Email, "@") {
		details["email"] = "must be a valid address"
	}
	if len(req.Password) < 8 {
		details["password"] = "must be at least 8 characters"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid registration payload", details)
	}

	_, token, exp, err := h.authSvc.Register(c.Context(), strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), req.Password, req.Phone)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	_, token, exp, err := h.authSvc.Login(c.Context(), strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{Token: token, ExpiresAt: exp}})
}
