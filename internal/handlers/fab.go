package handlers

import (
	"errors"
	"log"

	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// FabHandler exposes the follow-up bubble pipeline
type FabHandler struct {
	fab *services.FabService
}

// NewFabHandler creates a new FAB handler
func NewFabHandler(fab *services.FabService) *FabHandler {
	return &FabHandler{fab: fab}
}

// Me returns the caller's FAB message
// GET /api/fab/me
func (h *FabHandler) Me(c *fiber.Ctx) error {
	userID, err := h.callerCollaborator(c)
	if err != nil {
		return h.fabError(c, err, "resolve collaborator")
	}
	msg, err := h.fab.Get(c.UserContext(), userID)
	if err != nil {
		return h.fabError(c, err, "get follow-up")
	}
	return c.JSON(msg)
}

// CompleteMine completes the caller's active follow-up
// POST /api/fab/me/complete
func (h *FabHandler) CompleteMine(c *fiber.Ctx) error {
	userID, err := h.callerCollaborator(c)
	if err != nil {
		return h.fabError(c, err, "resolve collaborator")
	}
	return h.complete(c, userID)
}

// callerCollaborator returns the collaborator id of the authenticated account
func (h *FabHandler) callerCollaborator(c *fiber.Ctx) (string, error) {
	userID, _ := c.Locals("user_id").(string)
	email, _ := c.Locals("user_email").(string)
	return h.fab.ResolveCollaborator(c.UserContext(), userID, email)
}

// Complete completes the active follow-up of any user (admin)
// POST /api/fab/:userId/complete
func (h *FabHandler) Complete(c *fiber.Ctx) error {
	return h.complete(c, c.Params("userId"))
}

func (h *FabHandler) complete(c *fiber.Ctx, userID string) error {
	msg, err := h.fab.CompleteFollowUp(c.UserContext(), userID)
	if err != nil {
		return h.fabError(c, err, "complete follow-up")
	}
	return c.JSON(msg)
}

// MarkEffective stamps effectiveAt on a campaign (admin)
// POST /api/fab/:userId/effective/:index
func (h *FabHandler) MarkEffective(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign index"})
	}

	msg, err := h.fab.MarkEffective(c.UserContext(), c.Params("userId"), index)
	if err != nil {
		return h.fabError(c, err, "mark campaign effective")
	}
	return c.JSON(msg)
}

// Activate starts a follow-up on a campaign (admin)
// POST /api/fab/:userId/activate/:index
func (h *FabHandler) Activate(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid campaign index"})
	}

	msg, err := h.fab.Activate(c.UserContext(), c.Params("userId"), index)
	if err != nil {
		return h.fabError(c, err, "activate campaign")
	}
	return c.JSON(msg)
}

// Stats returns the campaign status totals (admin)
// GET /api/fab/stats
func (h *FabHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.fab.Stats(c.UserContext())
	if err != nil {
		return h.fabError(c, err, "compute campaign stats")
	}
	return c.JSON(stats.Status)
}

// Tags returns the tag distribution (admin)
// GET /api/fab/tags
func (h *FabHandler) Tags(c *fiber.Ctx) error {
	stats, err := h.fab.Stats(c.UserContext())
	if err != nil {
		return h.fabError(c, err, "compute tag distribution")
	}
	return c.JSON(stats.Tags)
}

func (h *FabHandler) fabError(c *fiber.Ctx, err error, action string) error {
	switch {
	case errors.Is(err, services.ErrFabNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No follow-up message for this user"})
	case errors.Is(err, services.ErrNoActiveFollowUp), errors.Is(err, services.ErrCampaignCompleted):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrCampaignIndex):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	log.Printf("❌ [FAB] Failed to %s: %v", action, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to " + action,
	})
}
