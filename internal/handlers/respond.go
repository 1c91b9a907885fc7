package handlers

import (
	"errors"
	"log"

	"intranet/internal/services"
	"intranet/internal/store"

	"github.com/gofiber/fiber/v2"
)

// writeError maps service and store errors to status codes. Unknown errors
// are logged and answered with a generic 500.
func writeError(c *fiber.Ctx, err error, action string) error {
	switch {
	case services.IsValidationError(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound), errors.Is(err, services.ErrUnknownCollection):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, services.ErrKeyFieldRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("❌ [API] Failed to %s: %v", action, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to " + action,
	})
}
