package router

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/adapter/api/handler"
)

// SetupChatRouter mounts the message pipeline. :kind is group, dm, support
// or doubt; group topics are selected with ?topic_id=.
func SetupChatRouter(v1 *echo.Group) {
	chatHandler := handler.GetChatHandler()

	chatGroup := v1.Group("/chats/:kind/:id")
	chatGroup.POST("/messages", chatHandler.SendMessage)
	chatGroup.GET("/messages", chatHandler.ListMessages)
	chatGroup.PUT("/messages/:messageId/seen", chatHandler.MarkSeen)
}
