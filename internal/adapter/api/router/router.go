package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/middleware"
	"studyhub/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, staffMiddleware *middleware.StaffMiddleware, limiter *ratelimit.RateLimiter) {
	v1 := e.Group("/v1")
	v1.Use(authMiddleware.Authenticate)
	v1.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))

	SetupChatRouter(v1)
	SetupConversationRouter(v1)
	SetupDoubtRouter(v1, staffMiddleware)
	SetupPollRouter(v1)
	SetupFAQRouter(v1, staffMiddleware)
	SetupPresenceRouter(v1)
	SetupUploadRouter(v1, limiter)
	SetupWebSocketRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
