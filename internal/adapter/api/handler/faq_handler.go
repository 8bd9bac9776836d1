package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type FAQHandler struct {
	faqUseCase *usecase.FAQUseCase
}

func NewFAQHandler(faqUseCase *usecase.FAQUseCase) *FAQHandler {
	return &FAQHandler{
		faqUseCase: faqUseCase,
	}
}

type saveFAQRequest struct {
	QuestionText    string `json:"question_text" validate:"required,max=4000"`
	AnswerText      string `json:"answer_text" validate:"required,max=8000"`
	SourceMessageID string `json:"source_message_id"`
}

func (h *FAQHandler) SaveFAQ(c echo.Context) error {
	var req saveFAQRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	faq, err := h.faqUseCase.SaveFAQ(c.Request().Context(), getUserIDFromContext(c), usecase.SaveFAQInput{
		PaperID:         c.Param("paperId"),
		TopicID:         c.Param("topicId"),
		QuestionText:    req.QuestionText,
		AnswerText:      req.AnswerText,
		SourceMessageID: req.SourceMessageID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, faq)
}

func (h *FAQHandler) ListFAQs(c echo.Context) error {
	faqs, err := h.faqUseCase.ListFAQs(c.Request().Context(), getUserIDFromContext(c), c.Param("paperId"), c.Param("topicId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, faqs, len(faqs))
}

func (h *FAQHandler) DraftFAQ(c echo.Context) error {
	messageID := c.QueryParam("message_id")
	if messageID == "" {
		return response.Error(c, errors.Validation("message_id query parameter is required", nil))
	}

	draft, err := h.faqUseCase.DraftFAQ(c.Request().Context(), getUserIDFromContext(c), c.Param("paperId"), c.Param("topicId"), messageID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, draft)
}
