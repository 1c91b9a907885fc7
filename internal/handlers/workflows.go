package handlers

import (
	"errors"

	"intranet/internal/middleware"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// WorkflowHandler handles admin decisions on HR requests
type WorkflowHandler struct {
	workflows *services.WorkflowService
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(workflows *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows}
}

// DecisionRequest is the body of a decision
type DecisionRequest struct {
	Decision string `json:"decision"`
	Comment  string `json:"comment"`
}

// Decide approves or rejects a pending request (admin)
// POST /api/workflows/:id/decision
func (h *WorkflowHandler) Decide(c *fiber.Ctx) error {
	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	decided, err := h.workflows.Decide(c.UserContext(), c.Params("id"), req.Decision, req.Comment, middleware.CurrentIdentity(c))
	switch {
	case errors.Is(err, services.ErrInvalidDecision):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAlreadyDecided):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return writeError(c, err, "record decision")
	}
	return c.JSON(decided)
}
