package handler

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/usecase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

type RatingHandler struct {
	ratingUseCase *usecase.RatingUseCase
	doubtUseCase  *usecase.DoubtUseCase
}

func NewRatingHandler(ratingUseCase *usecase.RatingUseCase, doubtUseCase *usecase.DoubtUseCase) *RatingHandler {
	return &RatingHandler{
		ratingUseCase: ratingUseCase,
		doubtUseCase:  doubtUseCase,
	}
}

type submitRatingRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// SubmitRating rates the faculty member assigned to the doubt. The faculty
// and paper are taken from the doubt, not the request.
func (h *RatingHandler) SubmitRating(c echo.Context) error {
	var req submitRatingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	view, err := h.doubtUseCase.GetDoubt(ctx, userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	rating, err := h.ratingUseCase.SubmitRating(ctx, userID, usecase.SubmitRatingInput{
		DoubtID:   view.ID,
		FacultyID: view.AssignedFacultyID,
		StudentID: view.StudentID,
		PaperID:   view.PaperID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, rating)
}

func (h *RatingHandler) FacultyRating(c echo.Context) error {
	summary, err := h.ratingUseCase.FacultyRating(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summary)
}

func (h *RatingHandler) ListFacultyRatings(c echo.Context) error {
	ratings, err := h.ratingUseCase.ListFacultyRatings(c.Request().Context(), getUserIDFromContext(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.List(c, ratings, len(ratings))
}
