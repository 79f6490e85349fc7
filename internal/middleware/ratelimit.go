package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/roamly/tour-booking/internal/apperr"
	"github.com/roamly/tour-booking/internal/config"
)

// RateLimit returns a fixed-window limiter keyed by client IP, backed by
// Redis so the window is shared across instances. When disabled or when no
// Redis client is available it passes every request through.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowScript := redis.NewScript(`
		local current = redis.call('INCR', KEYS[1])
		if current == 1 then
			redis.call('PEXPIRE', KEYS[1], ARGV[1])
		end
		return current
	`)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.Prefix + ":" + c.RealIP()
			ctx := c.Request().Context()

			count, err := windowScript.Run(ctx, rdb, []string{key},
				cfg.Window.Milliseconds()).Int64()
			if err != nil {
				// Redis trouble must not take the API down; fail open.
				return next(c)
			}
			if count > int64(cfg.Max) {
				c.Response().Header().Set("Retry-After",
					strconv.Itoa(int(cfg.Window/time.Second)))
				return apperr.RateLimited()
			}
			return next(c)
		}
	}
}
