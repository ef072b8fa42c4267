package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// ErrorHandler отдаёт ошибки в едином формате {"error": "..."}.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}
