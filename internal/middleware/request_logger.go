package middleware

import (
	"log/slog"

	"easyshop/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestLogger stores a per-request logger in the request's user context.
func RequestLogger(l *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqLogger := l.With(
			slog.String("request_id", uuid.New().String()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
		)
		c.SetUserContext(logging.IntoContext(c.UserContext(), reqLogger))
		return c.Next()
	}
}
