package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/domain/service"
	ws "studyhub/internal/infrastructure/websocket"
	"studyhub/internal/usecase"
)

var (
	chatHandler         *ChatHandler
	conversationHandler *ConversationHandler
	doubtHandler        *DoubtHandler
	ratingHandler       *RatingHandler
	pollHandler         *PollHandler
	faqHandler          *FAQHandler
	presenceHandler     *PresenceHandler
	uploadHandler       *UploadHandler
	webSocketHandler    *WebSocketHandler
)

func Setup(
	messageUseCase *usecase.MessageUseCase,
	conversationUseCase *usecase.ConversationUseCase,
	doubtUseCase *usecase.DoubtUseCase,
	ratingUseCase *usecase.RatingUseCase,
	pollUseCase *usecase.PollUseCase,
	faqUseCase *usecase.FAQUseCase,
	presenceTracker *usecase.PresenceTracker,
	blobStore service.BlobStore,
	wsManager *ws.Manager,
) {
	chatHandler = NewChatHandler(messageUseCase)
	conversationHandler = NewConversationHandler(conversationUseCase)
	doubtHandler = NewDoubtHandler(doubtUseCase)
	ratingHandler = NewRatingHandler(ratingUseCase, doubtUseCase)
	pollHandler = NewPollHandler(pollUseCase)
	faqHandler = NewFAQHandler(faqUseCase)
	presenceHandler = NewPresenceHandler(presenceTracker)
	uploadHandler = NewUploadHandler(blobStore, defaultMaxUploadSize)
	webSocketHandler = NewWebSocketHandler(wsManager)
}

// SetupDevHandler wires the development-only seeding endpoints.
func SetupDevHandler(userRepo repository.UserRepository, setSettings func(entity.GlobalSettings)) {
	devHandler = NewDevHandler(userRepo, setSettings)
}

func GetChatHandler() *ChatHandler {
	return chatHandler
}

func GetConversationHandler() *ConversationHandler {
	return conversationHandler
}

func GetDoubtHandler() *DoubtHandler {
	return doubtHandler
}

func GetRatingHandler() *RatingHandler {
	return ratingHandler
}

func GetPollHandler() *PollHandler {
	return pollHandler
}

func GetFAQHandler() *FAQHandler {
	return faqHandler
}

func GetPresenceHandler() *PresenceHandler {
	return presenceHandler
}

func GetUploadHandler() *UploadHandler {
	return uploadHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}

func GetDevHandler() *DevHandler {
	return devHandler
}

func getUserIDFromContext(c echo.Context) string {
	if uid, ok := c.Get("uid").(string); ok {
		return uid
	}
	return ""
}
