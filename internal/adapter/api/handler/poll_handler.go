package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type PollHandler struct {
	pollUseCase *usecase.PollUseCase
}

func NewPollHandler(pollUseCase *usecase.PollUseCase) *PollHandler {
	return &PollHandler{
		pollUseCase: pollUseCase,
	}
}

type createPollRequest struct {
	Question string   `json:"question" validate:"required,max=500"`
	Options  []string `json:"options" validate:"required,max=10,dive,max=200"`
}

type voteRequest struct {
	Option *int `json:"option" validate:"required"`
}

func (h *PollHandler) CreatePoll(c echo.Context) error {
	var req createPollRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	poll, err := h.pollUseCase.CreatePoll(c.Request().Context(), getUserIDFromContext(c), usecase.CreatePollInput{
		PaperID:  c.Param("paperId"),
		TopicID:  c.Param("topicId"),
		Question: req.Question,
		Options:  req.Options,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, poll)
}

func (h *PollHandler) GetPoll(c echo.Context) error {
	poll, err := h.pollUseCase.GetPoll(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, poll)
}

func (h *PollHandler) Vote(c echo.Context) error {
	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	poll, err := h.pollUseCase.Vote(c.Request().Context(), getUserIDFromContext(c), c.Param("id"), *req.Option)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, poll)
}
