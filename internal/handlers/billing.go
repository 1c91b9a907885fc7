package handlers

import (
	"errors"

	"intranet/internal/logging"
	"intranet/internal/middleware"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// BillingHandler serves the cloud billing summary to super admins
type BillingHandler struct {
	billing *services.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Summary returns the billing summary of the current month
// GET /api/billing
func (h *BillingHandler) Summary(c *fiber.Ctx) error {
	caller := middleware.CurrentIdentity(c)
	if caller == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}
	logger := logging.WithRequest(c.Method(), c.Path(), caller.ID)

	summary, err := h.billing.Summary(c.UserContext(), caller)
	switch {
	case errors.Is(err, services.ErrNotSuperAdmin):
		logger.Warn("billing access denied", "email", caller.Email)
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Super admin access required"})
	case err != nil:
		logger.Error("billing summary failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load billing data"})
	}

	logger.Info("billing summary served", "email", caller.Email, "total", summary.TotalCost)
	return c.JSON(summary)
}
