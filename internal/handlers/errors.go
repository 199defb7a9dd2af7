package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"easyshop/internal/logging"
	"easyshop/internal/repositories"
	"easyshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError maps service and store errors to a status code and a short message.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	message := fallback

	switch {
	case errors.Is(err, repositories.ErrInvalidInput):
		status, message = fiber.StatusBadRequest, "All fields are required"
	case errors.Is(err, repositories.ErrAlreadyExists):
		status, message = fiber.StatusConflict, "Already exists"
	case errors.Is(err, repositories.ErrNotFound):
		status, message = fiber.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrInvalidCredentials):
		status, message = fiber.StatusUnauthorized, "Invalid email or password"
	}

	l := logging.FromContext(c.UserContext())
	if status == fiber.StatusInternalServerError {
		l.Error(fallback, slog.Any("error", err))
		return c.Status(status).JSON(fiber.Map{"message": message})
	}
	l.Info(fallback, slog.Int("status", status), slog.Any("error", err))
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// respondValidation reports the fields that failed validation.
func respondValidation(c *fiber.Ctx, err error) error {
	errorMessages := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

func badBody(c *fiber.Ctx, err error) error {
	logging.FromContext(c.UserContext()).Info("invalid request body", slog.Any("error", err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}
