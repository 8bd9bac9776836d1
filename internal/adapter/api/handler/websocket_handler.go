package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	ws "studyhub/internal/infrastructure/websocket"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
	"studyhub/pkg/response"
)

type WebSocketHandler struct {
	wsManager *ws.Manager
	upgrader  gorillaws.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager: wsManager,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket upgrades an authenticated request and serves it until the
// connection closes. Presence is activated for the socket's lifetime.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == "" {
		return response.Error(c, errors.Unauthenticated("Authentication required"))
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn("websocket upgrade failed for %s: %v", userID, err)
		return nil
	}

	h.wsManager.ServeClient(c.Request().Context(), conn, userID)
	return nil
}
