package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/domain/repository"
	"studyhub/internal/infrastructure/firebase"
	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

// DevHandler seeds users and settings on the memory driver so the API can
// be exercised locally without Firebase.
type DevHandler struct {
	userRepo    repository.UserRepository
	setSettings func(entity.GlobalSettings)
}

var devHandler *DevHandler

func NewDevHandler(userRepo repository.UserRepository, setSettings func(entity.GlobalSettings)) *DevHandler {
	return &DevHandler{
		userRepo:    userRepo,
		setSettings: setSettings,
	}
}

type seedUserRequest struct {
	ID          string   `json:"id" validate:"required"`
	DisplayName string   `json:"display_name"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Role        string   `json:"role"`
	TeamIDs     []string `json:"team_ids"`
}

// SeedUser creates a user and returns a development token for it.
func (h *DevHandler) SeedUser(c echo.Context) error {
	var req seedUserRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user := &entity.User{
		ID:          req.ID,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Role:        entity.ParseRole(req.Role),
		TeamIDs:     req.TeamIDs,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.userRepo.Create(c.Request().Context(), user); err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]interface{}{
		"token": firebase.DevTokenPrefix + user.ID,
		"user":  user,
	})
}

func (h *DevHandler) UpdateSettings(c echo.Context) error {
	var settings entity.GlobalSettings
	if err := c.Bind(&settings); err != nil {
		return response.Error(c, errors.Validation("Invalid request body", err))
	}
	h.setSettings(settings)

	return response.Success(c, settings)
}
