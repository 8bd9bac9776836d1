package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
	"studyhub/internal/adapter/api/middleware"
	"studyhub/internal/infrastructure/ratelimit"
)

func SetupUploadRouter(v1 *echo.Group, limiter *ratelimit.RateLimiter) {
	uploadHandler := handler.GetUploadHandler()

	v1.POST("/uploads", uploadHandler.UploadFile, middleware.RateLimit(limiter, ratelimit.ActionUpload))
}
