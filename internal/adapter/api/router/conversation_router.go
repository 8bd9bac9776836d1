package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
)

func SetupConversationRouter(v1 *echo.Group) {
	conversationHandler := handler.GetConversationHandler()

	conversationGroup := v1.Group("/conversations")
	conversationGroup.GET("", conversationHandler.ListConversations)
	conversationGroup.POST("/direct", conversationHandler.StartDirectMessage)
	conversationGroup.POST("/support", conversationHandler.StartSupportChat)
}
