package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/adapter/api/middleware"
)

// SetupWebSocketRouter mounts /ws. Browsers cannot set headers on the
// handshake, so the token travels as ?token=.
func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	e.GET("/ws", handler.GetWebSocketHandler().HandleWebSocket, authMiddleware.AuthenticateQuery)
}
