package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/craftedlabs/user-service/internal/api/dto"
	"github.com/craftedlabs/user-service/internal/repository"
	"github.com/craftedlabs/user-service/internal/service"
	apperrors "github.com/craftedlabs/user-service/pkg/util"
)

// UsersHandler exposes the user-directory CRUD endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Limit:  c.QueryInt("limit", 0),
		Offset: c.QueryInt("offset", 0),
	}
	if v := c.Query("first_name"); v != "" {
		filter.FirstName = &v
	}
	if v := c.Query("last_name"); v != "" {
		filter.LastName = &v
	}
	if v := c.Query("email"); v != "" {
		filter.Email = &v
	}
	if v := c.Query("is_deleted"); v != "" {
		deleted, err := strconv.ParseBool(v)
		if err != nil {
			return apperrors.NewValidationError("is_deleted must be a boolean", nil)
		}
		filter.IsDeleted = &deleted
	}

	users, err := h.users.List(c.Context(), filter)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.UsersFromDomain(users)})
}

// Get handles GET /users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// Create handles POST /users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.UserCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.FirstName == "" || req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("first_name, email, password required", nil)
	}

	user, err := h.users.Create(c.Context(), service.UserCreateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// Update handles PUT /users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, err := h.users.Update(c.Context(), c.Params("id"), service.UserUpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.UserFromDomain(user)})
}

// Delete handles DELETE /users/:id (soft delete).
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.users.SoftDelete(c.Context(), c.Params("id")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(http.StatusNoContent)
}
