package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/service"
)

// UserHandler handles user profile endpoints.
type UserHandler struct {
	users *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Get returns a user's profile.
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// List returns all users. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	actor, _ := CurrentUser(c)
	users, err := h.users.ListUsers(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Name  string      `json:"name" validate:"max=100"`
	Email string      `json:"email" validate:"required,email"`
	Image string      `json:"image" validate:"omitempty,url"`
	Role  domain.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// Create provisions a password-less user. Admin only.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	actor, _ := CurrentUser(c)
	user, err := h.users.CreateUser(c.Request().Context(), actor, service.NewUser{
		Name:  req.Name,
		Email: req.Email,
		Image: req.Image,
		Role:  req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"user": user})
}

// An empty image removes the avatar.
type updateUserRequest struct {
	Name  *string      `json:"name" validate:"omitempty,min=1,max=100"`
	Image *string      `json:"image" validate:"omitempty,url|len=0"`
	Role  *domain.Role `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

// Update changes a user's profile. Only the user or an admin may call it.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	actor, _ := CurrentUser(c)
	user, err := h.users.UpdateUser(c.Request().Context(), actor, c.Param("id"), domain.ProfileUpdate{
		Name:  req.Name,
		Image: req.Image,
		Role:  req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user. Admin only.
func (h *UserHandler) Delete(c echo.Context) error {
	actor, _ := CurrentUser(c)
	if err := h.users.DeleteUser(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
