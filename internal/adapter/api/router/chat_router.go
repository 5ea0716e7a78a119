package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chats := e.Group("/v1/chats")
	chats.Use(authMiddleware.Authenticate)

	chats.GET("", chatHandler.ListConversations)
	chats.POST("/messages", chatHandler.SendMessage)
	chats.GET("/:listingId/:otherUserId/messages", chatHandler.ListMessages)
	chats.PATCH("/messages/:id", chatHandler.EditMessage)
	chats.DELETE("/messages/:id", chatHandler.DeleteMessage)
	chats.POST("/read", chatHandler.MarkRead)
	chats.DELETE("/:listingId/:otherUserId", chatHandler.DeleteConversation)
}
