package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
)

func SetupPresenceRouter(v1 *echo.Group) {
	presenceHandler := handler.GetPresenceHandler()

	v1.GET("/presence", presenceHandler.ListPresence)
	v1.GET("/presence/:uid", presenceHandler.GetPresence)
}
