package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bankdesk/servicedesk/internal/api/dto"
	"github.com/bankdesk/servicedesk/internal/service"
	apperrors "github.com/bankdesk/servicedesk/pkg/util"
)

// AuthHandler exposes principal login.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}
	principal, token, expiresAt, err := h.auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:       token,
		ExpiresAt:   expiresAt,
		PrincipalID: principal.ID,
		Role:        principal.Role,
	}})
}
