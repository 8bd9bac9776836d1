package middleware

import (
	"github.com/labstack/echo/v4"

	"studyhub/internal/infrastructure/ratelimit"
	"studyhub/pkg/errors"
	"studyhub/pkg/logger"
	"studyhub/pkg/response"
)

// RateLimit spends one token from the caller's bucket for action. Signed-in
// callers are keyed by uid, everyone else by client IP.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = "ip:" + c.RealIP()
			}

			if allowed, retryAfter := limiter.Allow(key, action); !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", key, action, retryAfter)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", retryAfter))
			}

			return next(c)
		}
	}
}
