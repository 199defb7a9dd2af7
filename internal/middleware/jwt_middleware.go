package middleware

import (
	"log/slog"
	"strings"

	"easyshop/internal/logging"
	"easyshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Locals keys set by SessionRequired.
const (
	LocalEmail    = "email"
	LocalUsername = "username"
)

// SessionRequired is a Fiber middleware that rejects requests without a valid session token.
func SessionRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			logging.FromContext(c.UserContext()).Info("session rejected", slog.Any("error", err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Session expired, please log in again",
			})
		}

		c.Locals(LocalEmail, claims["email"])
		c.Locals(LocalUsername, claims["username"])
		return c.Next()
	}
}
