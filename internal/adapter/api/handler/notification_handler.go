package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type NotificationHandler struct {
	notificationUseCase *usecase.NotificationUseCase
}

func NewNotificationHandler(notificationUseCase *usecase.NotificationUseCase) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	userID, _ := c.Get("uid").(string)
	limit, offset := utils.LimitOffset(c, 20)

	notifications, total, err := h.notificationUseCase.List(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, notifications, total, limit, offset)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	userID, _ := c.Get("uid").(string)
	notificationID := c.Param("id")

	if err := h.notificationUseCase.MarkRead(c.Request().Context(), userID, notificationID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	userID, _ := c.Get("uid").(string)

	if err := h.notificationUseCase.MarkAllRead(c.Request().Context(), userID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}
