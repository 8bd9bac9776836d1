package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub/internal/infrastructure/ratelimit"
)

type staticVerifier map[string]string

func (v staticVerifier) VerifyToken(_ context.Context, token string) (string, error) {
	if uid, ok := v[token]; ok {
		return uid, nil
	}
	return "", fmt.Errorf("unknown token")
}

type staticRoles map[string]bool

func (r staticRoles) IsStaff(_ context.Context, uid string) (bool, error) {
	return r[uid], nil
}

func echoUID(c echo.Context) error {
	return c.String(http.StatusOK, c.Get("uid").(string))
}

func run(t *testing.T, h echo.HandlerFunc, req *http.Request, uid string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		c.Set("uid", uid)
	}
	require.NoError(t, h(c))
	return rec
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(staticVerifier{"a": "u1"}, staticVerifier{"b": "u2"})
	h := m.Authenticate(echoUID)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "Authorization header is required"},
		{"wrong scheme", "Basic a", http.StatusUnauthorized, "Invalid authorization format"},
		{"unknown token", "Bearer zzz", http.StatusUnauthorized, "Invalid or expired token"},
		{"first verifier", "Bearer a", http.StatusOK, "u1"},
		{"second verifier", "Bearer b", http.StatusOK, "u2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := run(t, h, req, "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestAuthenticateQuery(t *testing.T) {
	m := NewAuthMiddleware(staticVerifier{"a": "u1"})
	h := m.AuthenticateQuery(echoUID)

	rec := run(t, h, httptest.NewRequest(http.MethodGet, "/ws?token=a", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())

	rec = run(t, h, httptest.NewRequest(http.MethodGet, "/ws", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateWithoutVerifiers(t *testing.T) {
	_, err := NewAuthMiddleware().GetUIDFromToken(context.Background(), "a")
	assert.Error(t, err)
}

func TestStaffOnly(t *testing.T) {
	h := NewStaffMiddleware(staticRoles{"f1": true}).StaffOnly(echoUID)

	rec := run(t, h, httptest.NewRequest(http.MethodGet, "/", nil), "f1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = run(t, h, httptest.NewRequest(http.MethodGet, "/", nil), "s1")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = run(t, h, httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(30)
	h := RateLimit(limiter, ratelimit.ActionCreatePoll)(echoUID)

	for i := 0; i < 3; i++ {
		rec := run(t, h, httptest.NewRequest(http.MethodPost, "/", nil), "f1")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := run(t, h, httptest.NewRequest(http.MethodPost, "/", nil), "f1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")

	rec = run(t, h, httptest.NewRequest(http.MethodPost, "/", nil), "f2")
	assert.Equal(t, http.StatusOK, rec.Code)
}
