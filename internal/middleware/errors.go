package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders every error as {"message": ...}. Errors that are not
// *fiber.Error are logged and answered with a generic 500 so internals never
// reach the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}
		logger.Error("internal failure",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("request_id", RequestIDFrom(c)),
			slog.Any("error", err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}
