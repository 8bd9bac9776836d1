package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type ConversationHandler struct {
	conversationUseCase *usecase.ConversationUseCase
}

func NewConversationHandler(conversationUseCase *usecase.ConversationUseCase) *ConversationHandler {
	return &ConversationHandler{
		conversationUseCase: conversationUseCase,
	}
}

type startDirectMessageRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type startSupportChatRequest struct {
	TeamID string `json:"team_id" validate:"required"`
}

func (h *ConversationHandler) StartDirectMessage(c echo.Context) error {
	var req startDirectMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.StartDirectMessage(c.Request().Context(), getUserIDFromContext(c), req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

func (h *ConversationHandler) StartSupportChat(c echo.Context) error {
	var req startSupportChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	conv, err := h.conversationUseCase.StartSupportChat(c.Request().Context(), getUserIDFromContext(c), req.TeamID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conv)
}

// ListConversations accepts ?kind=dm|support and, for staff, ?team_id=.
func (h *ConversationHandler) ListConversations(c echo.Context) error {
	conversations, err := h.conversationUseCase.ListConversations(
		c.Request().Context(),
		getUserIDFromContext(c),
		entity.ChatKind(c.QueryParam("kind")),
		c.QueryParam("team_id"),
	)
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, conversations, len(conversations))
}
