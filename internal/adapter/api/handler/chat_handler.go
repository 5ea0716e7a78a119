package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type ChatHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewChatHandler(messageUseCase *usecase.MessageUseCase) *ChatHandler {
	return &ChatHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	ListingID  string `json:"listing_id" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
	Body       string `json:"body" validate:"required"`
	ClientID   string `json:"client_id,omitempty"`
}

type editMessageRequest struct {
	ListingID   string `json:"listing_id" validate:"required"`
	OtherUserID string `json:"other_user_id" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

type deleteMessageRequest struct {
	ListingID   string `json:"listing_id" validate:"required"`
	OtherUserID string `json:"other_user_id" validate:"required"`
}

type markReadRequest struct {
	ListingID   string `json:"listing_id" validate:"required"`
	OtherUserID string `json:"other_user_id" validate:"required"`
}

// SendMessage stores a new message addressed to another user about a listing.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, _ := c.Get("uid").(string)

	message, err := h.messageUseCase.Send(c.Request().Context(), userID, usecase.SendMessageInput{
		ListingID:  req.ListingID,
		ReceiverID: req.ReceiverID,
		Body:       req.Body,
		ClientID:   req.ClientID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// ListMessages returns the caller's conversation with another user about a
// listing, oldest first.
func (h *ChatHandler) ListMessages(c echo.Context) error {
	userID, _ := c.Get("uid").(string)
	listingID := c.Param("listingId")
	otherUserID := c.Param("otherUserId")
	limit, offset := utils.LimitOffset(c, 50)

	messages, total, err := h.messageUseCase.ListMessages(c.Request().Context(), userID, listingID, otherUserID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, limit, offset)
}

// EditMessage replaces the body of the caller's own message.
func (h *ChatHandler) EditMessage(c echo.Context) error {
	messageID := c.Param("id")

	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, _ := c.Get("uid").(string)

	message, err := h.messageUseCase.Edit(c.Request().Context(), userID, req.ListingID, req.OtherUserID, messageID, req.Body)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

// DeleteMessage soft-deletes the caller's own message.
func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	messageID := c.Param("id")

	var req deleteMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, _ := c.Get("uid").(string)

	if err := h.messageUseCase.SoftDelete(c.Request().Context(), userID, req.ListingID, req.OtherUserID, messageID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// MarkRead marks every unread message from the other user as read.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	var req markReadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID, _ := c.Get("uid").(string)

	if err := h.messageUseCase.MarkRead(c.Request().Context(), userID, req.ListingID, req.OtherUserID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// ListConversations returns the caller's conversations, newest activity first.
func (h *ChatHandler) ListConversations(c echo.Context) error {
	userID, _ := c.Get("uid").(string)
	limit, offset := utils.LimitOffset(c, 20)

	conversations, total, err := h.messageUseCase.ListConversations(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, conversations, total, limit, offset)
}

// DeleteConversation removes a conversation and all its messages.
func (h *ChatHandler) DeleteConversation(c echo.Context) error {
	userID, _ := c.Get("uid").(string)
	listingID := c.Param("listingId")
	otherUserID := c.Param("otherUserId")

	if err := h.messageUseCase.DeleteConversation(c.Request().Context(), userID, listingID, otherUserID); err != nil {
		return response.Error(c, err)
	}

	return c.NoContent(http.StatusOK)
}
