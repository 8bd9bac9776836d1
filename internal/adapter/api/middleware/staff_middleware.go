package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"studyhub/pkg/errors"
	"studyhub/pkg/response"
)

// RoleChecker answers whether a uid belongs to a staff role.
type RoleChecker interface {
	IsStaff(ctx context.Context, uid string) (bool, error)
}

type StaffMiddleware struct {
	roles RoleChecker
}

func NewStaffMiddleware(roles RoleChecker) *StaffMiddleware {
	return &StaffMiddleware{
		roles: roles,
	}
}

func (m *StaffMiddleware) StaffOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid, ok := c.Get("uid").(string)
		if !ok || uid == "" {
			return response.Error(c, errors.Unauthenticated("Authentication required"))
		}

		staff, err := m.roles.IsStaff(c.Request().Context(), uid)
		if err != nil {
			return response.Error(c, err)
		}
		if !staff {
			return response.Error(c, errors.Forbidden("Staff privileges required", nil))
		}

		return next(c)
	}
}
