package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/craftedlabs/user-service/internal/api/dto"
	"github.com/craftedlabs/user-service/internal/auth"
	"github.com/craftedlabs/user-service/internal/service"
	apperrors "github.com/craftedlabs/user-service/pkg/util"
)

// AuthHandler exposes credential issuance endpoints.
type AuthHandler struct {
	sessions *service.SessionService
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions *service.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return apperrors.NewValidationError("first_name, email, password required", nil)
	}

	result, err := h.sessions.Register(c.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		return apperrors.MapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": result})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.sessions.PasswordLogin(c.Context(), req.Email, req.Password)
	if err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(fiber.Map{"data": result})
}

// GoogleLogin handles GET /auth/google/login.
func (h *AuthHandler) GoogleLogin(c *fiber.Ctx) error {
	url, state, err := h.sessions.StartGoogleLogin(c.Context(), c.Query("redirect_uri"))
	if err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(fiber.Map{"data": dto.GoogleLoginResponse{
		AuthorizationURL: url,
		State:            state,
	}})
}

// GoogleCallback handles GET /auth/google/callback.
func (h *AuthHandler) GoogleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return apperrors.NewValidationError("code required", nil)
	}

	result, err := h.sessions.GoogleCallback(c.Context(), code, c.Query("state"), c.Query("redirect_uri"))
	if err != nil {
		return apperrors.MapError(err)
	}

	return c.JSON(fiber.Map{"data": result})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}

	if principal.User != nil {
		return c.JSON(fiber.Map{"data": dto.UserFromDomain(principal.User)})
	}
	claims := principal.Claims
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":         claims.Subject,
		"first_name": claims.FirstName,
		"last_name":  claims.LastName,
		"email":      claims.Email,
	}})
}
