package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type ChatHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewChatHandler(messageUseCase *usecase.MessageUseCase) *ChatHandler {
	return &ChatHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Content     string             `json:"content" validate:"required,max=4000"`
	MessageType entity.MessageType `json:"message_type"`
	FileName    string             `json:"file_name,omitempty"`
	PollID      string             `json:"poll_id,omitempty"`
	TopicID     string             `json:"topic_id,omitempty"`
}

func chatRefFromPath(c echo.Context) entity.ChatRef {
	return entity.ChatRef{
		Kind:    entity.ChatKind(c.Param("kind")),
		ChatID:  c.Param("id"),
		TopicID: c.QueryParam("topic_id"),
	}.Normalize()
}

// SendMessage posts to /v1/chats/:kind/:id/messages. Group topics come
// from the body or ?topic_id=.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}

	ref := chatRefFromPath(c)
	if !ref.Kind.Valid() {
		return response.Error(c, errors.InvalidChatKind(string(ref.Kind)))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	topicID := req.TopicID
	if topicID == "" {
		topicID = c.QueryParam("topic_id")
	}

	id, err := h.messageUseCase.SendMessage(c.Request().Context(), getUserIDFromContext(c), usecase.SendMessageInput{
		ChatID:      ref.ChatID,
		ChatKind:    ref.Kind,
		Content:     req.Content,
		MessageType: req.MessageType,
		FileName:    req.FileName,
		PollID:      req.PollID,
		TopicID:     topicID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"id": id,
	})
}

func (h *ChatHandler) ListMessages(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return response.Error(c, errors.Validation("limit must be a non-negative integer", err))
		}
		limit = n
	}

	messages, err := h.messageUseCase.ListMessages(c.Request().Context(), getUserIDFromContext(c), chatRefFromPath(c), limit)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages))
}

func (h *ChatHandler) MarkSeen(c echo.Context) error {
	err := h.messageUseCase.MarkSeen(c.Request().Context(), getUserIDFromContext(c), chatRefFromPath(c), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"message_id": c.Param("messageId"),
		"seen":       true,
	})
}
