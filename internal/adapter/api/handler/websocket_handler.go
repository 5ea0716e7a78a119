package handler

import (
	"net/http"

	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/middleware"
	"unimarket/internal/infrastructure/websocket"
	"unimarket/pkg/logger"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	manager  *websocket.Manager
	auth     *middleware.AuthMiddleware
	marker   websocket.ReadMarker
	presence websocket.PresenceRecorder
}

func NewWebSocketHandler(manager *websocket.Manager, auth *middleware.AuthMiddleware, marker websocket.ReadMarker, presence websocket.PresenceRecorder) *WebSocketHandler {
	return &WebSocketHandler{
		manager:  manager,
		auth:     auth,
		marker:   marker,
		presence: presence,
	}
}

// Handle authenticates the connection and upgrades it. Browsers cannot set
// headers on WebSocket requests, so the token may arrive as a query param.
func (h *WebSocketHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token is required")
	}

	userID, err := h.auth.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("ws: upgrade failed for %s: %v", userID, err)
		return err
	}

	client := &websocket.Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.manager.Register <- client

	go client.WritePump()
	go client.ReadPump(h.manager, h.marker, h.presence)

	return nil
}
