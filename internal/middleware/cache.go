package middleware

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/roamly/tour-booking/internal/config"
)

// CacheList caches successful anonymous GET responses in Redis, keyed by the
// full request URI. Intended for the public tour listing, which is read-heavy
// and identical for every visitor. Authenticated requests and misbehaving
// Redis both fall through to the handler.
func CacheList(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet || c.Request().Header.Get("Authorization") != "" {
				return next(c)
			}
			key := cfg.Prefix + ":" + c.Request().RequestURI
			ctx := c.Request().Context()

			if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
			}

			rec := &captureWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK {
				rdb.Set(ctx, key, rec.body.Bytes(), cfg.TTL)
			}
			return nil
		}
	}
}

// captureWriter tees the response body so it can be stored after sending.
type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *captureWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}
