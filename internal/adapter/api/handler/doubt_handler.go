package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type DoubtHandler struct {
	doubtUseCase *usecase.DoubtUseCase
}

func NewDoubtHandler(doubtUseCase *usecase.DoubtUseCase) *DoubtHandler {
	return &DoubtHandler{
		doubtUseCase: doubtUseCase,
	}
}

func (h *DoubtHandler) CreateDoubt(c echo.Context) error {
	var req usecase.CreateDoubtInput
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	doubt, err := h.doubtUseCase.CreateDoubt(c.Request().Context(), getUserIDFromContext(c), req)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, doubt)
}

func (h *DoubtHandler) GetDoubt(c echo.Context) error {
	view, err := h.doubtUseCase.GetDoubt(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, view)
}

func (h *DoubtHandler) ListStudentDoubts(c echo.Context) error {
	views, err := h.doubtUseCase.ListStudentDoubts(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, views, len(views))
}

func (h *DoubtHandler) ListPaperDoubts(c echo.Context) error {
	views, err := h.doubtUseCase.ListPaperDoubts(c.Request().Context(), getUserIDFromContext(c), c.Param("paperId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, views, len(views))
}

func (h *DoubtHandler) ResolveDoubt(c echo.Context) error {
	doubt, err := h.doubtUseCase.ResolveDoubt(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, doubt)
}
