package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
	"studyhub/pkg/response"
)

// TokenVerifier resolves a bearer token to the uid it was issued to.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type AuthMiddleware struct {
	verifiers []TokenVerifier
}

// NewAuthMiddleware tries each verifier in order until one accepts the token.
func NewAuthMiddleware(verifiers ...TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifiers: verifiers,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthenticated("Authorization header is required"))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthenticated("Invalid authorization format"))
		}

		uid, err := m.GetUIDFromToken(c.Request().Context(), parts[1])
		if err != nil {
			return response.Error(c, errors.Unauthenticated("Invalid or expired token"))
		}

		c.Set("uid", uid)
		return next(c)
	}
}

// AuthenticateQuery reads the token from ?token= for clients that cannot
// set headers, such as browser WebSocket handshakes.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return response.Error(c, errors.Unauthenticated("token query parameter is required"))
		}

		uid, err := m.GetUIDFromToken(c.Request().Context(), token)
		if err != nil {
			return response.Error(c, errors.Unauthenticated("Invalid or expired token"))
		}

		c.Set("uid", uid)
		return next(c)
	}
}

func (m *AuthMiddleware) GetUIDFromToken(ctx context.Context, token string) (string, error) {
	var lastErr error
	for _, v := range m.verifiers {
		uid, err := v.VerifyToken(ctx, token)
		if err == nil && uid != "" {
			return uid, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.Unauthenticated("no token verifier configured")
	}
	logger.Debug("token rejected: %v", lastErr)
	return "", lastErr
}
