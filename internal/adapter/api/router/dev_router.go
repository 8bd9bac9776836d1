package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
)

// SetupDevRouter mounts seeding endpoints; it does nothing outside development.
func SetupDevRouter(e *echo.Echo, environment string) {
	if environment != "development" {
		return
	}
	devHandler := handler.GetDevHandler()
	if devHandler == nil {
		return
	}

	e.POST("/_dev/users", devHandler.SeedUser)
	e.PUT("/_dev/settings", devHandler.UpdateSettings)
}
