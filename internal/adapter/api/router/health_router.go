package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/infrastructure/metrics"
)

func SetupHealthRouter(e *echo.Echo) {
	healthHandler := handler.GetHealthHandler()
	e.GET("/health", healthHandler.CheckHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}
