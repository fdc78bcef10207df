package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/epcr-service/internal/api/dto"
	"github.com/spec-kit/epcr-service/internal/auth"
	"github.com/spec-kit/epcr-service/internal/service"
	apperrors "github.com/spec-kit/epcr-service/pkg/util/errorutil"
)

// AuthHandler exposes passwordless sign-in.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RequestCode handles POST /auth/sign-in/request.
func (h *AuthHandler) RequestCode(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", map[string]any{"field": "email"})
	}
	if err := h.authService.RequestSignInCode(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "code_sent"}})
}

// VerifyCode handles POST /auth/sign-in/verify.
func (h *AuthHandler) VerifyCode(c *fiber.Ctx) error {
	var req dto.SignInVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Code == "" {
		return apperrors.NewValidationError("email and code required", nil)
	}

	user, token, exp, err := h.authService.VerifySignInCode(c.UserContext(), req.Email, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": userResponse(principal.User)})
}
