package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type ensureProfileRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"required"`
}

// EnsureProfile creates the caller's profile row on first sign-in and is a
// no-op afterwards.
func (h *UserHandler) EnsureProfile(c echo.Context) error {
	var req ensureProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, _ := c.Get("uid").(string)

	user, err := h.userUseCase.EnsureProfile(c.Request().Context(), userID, req.Email, req.DisplayName)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) Me(c echo.Context) error {
	userID, _ := c.Get("uid").(string)

	user, err := h.userUseCase.GetByID(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

// Heartbeat records user activity so email escalation can tell whether the
// recipient is currently around.
func (h *UserHandler) Heartbeat(c echo.Context) error {
	userID, _ := c.Get("uid").(string)

	if err := h.userUseCase.Touch(c.Request().Context(), userID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}
