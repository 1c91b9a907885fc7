package handlers

import (
	"errors"

	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PollHandler handles voting
type PollHandler struct {
	polls *services.PollService
}

// NewPollHandler creates a new poll handler
func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

// VoteRequest is the body of a vote
type VoteRequest struct {
	Option string `json:"option"`
}

// Vote records the caller's choice
// POST /api/polls/:id/vote
func (h *PollHandler) Vote(c *fiber.Ctx) error {
	var req VoteRequest
	if err := c.BodyParser(&req); err != nil || req.Option == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "option is required"})
	}

	userID, _ := c.Locals("user_id").(string)
	results, err := h.polls.Vote(c.UserContext(), c.Params("id"), userID, req.Option)
	switch {
	case errors.Is(err, services.ErrPollClosed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrUnknownOption):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		return writeError(c, err, "record vote")
	}
	return c.JSON(results)
}

// Results returns the per-option counts
// GET /api/polls/:id/results
func (h *PollHandler) Results(c *fiber.Ctx) error {
	results, err := h.polls.Results(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err, "get poll results")
	}
	return c.JSON(results)
}
