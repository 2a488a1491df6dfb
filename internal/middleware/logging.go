// Package middleware provides Echo middleware for logging, metrics and response hardening.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HeaderSessionID carries the library session a request belongs to.
const HeaderSessionID = "X-Session-Id"

// RequestLogger returns an Echo middleware that logs each request with slog.
// Server errors are logged at warn level so they survive an info-level filter
// when the handler itself already logged the cause at debug.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	logger = logger.With("component", "http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			level := slog.LevelInfo
			if res.Status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", res.Header().Get(echo.HeaderXRequestID),
				"remote_ip", c.RealIP(),
				"bytes_out", res.Size,
			}
			if sid := req.Header.Get(HeaderSessionID); sid != "" {
				attrs = append(attrs, "session_id", sid)
			}
			logger.Log(req.Context(), level, "request", attrs...)

			return err
		}
	}
}
