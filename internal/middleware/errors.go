package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/wearzy/wearzy/internal/apperr"
)

// ErrorStatus maps a handler error to its HTTP status.
func ErrorStatus(err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return apperr.HTTPStatus(appErr.Kind)
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error as {"message": ...}. Causes of 5xx
// responses are logged and replaced by a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := ErrorStatus(err)

		message := apperr.PublicMessage(err)
		var appErr *apperr.Error
		var fiberErr *fiber.Error
		if !errors.As(err, &appErr) && errors.As(err, &fiberErr) {
			message = fiberErr.Message
		}

		if status >= fiber.StatusInternalServerError {
			message = apperr.InternalMessage
			logger.ErrorContext(c.UserContext(), "request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", RequestIDFrom(c)),
				slog.Any("error", err),
			)
		}

		return c.Status(status).JSON(fiber.Map{"message": message})
	}
}
