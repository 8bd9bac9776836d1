package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
)

func SetupPollRouter(v1 *echo.Group) {
	pollHandler := handler.GetPollHandler()

	v1.POST("/papers/:paperId/topics/:topicId/polls", pollHandler.CreatePoll)

	pollGroup := v1.Group("/polls")
	pollGroup.GET("/:id", pollHandler.GetPoll)
	pollGroup.POST("/:id/votes", pollHandler.Vote)
}
