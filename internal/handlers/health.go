package handlers

import (
	"context"
	"time"

	"intranet/internal/services"
	"intranet/internal/store"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store store.Store
	redis *services.RedisService
}

// NewHealthHandler creates a new health handler. redis may be nil.
func NewHealthHandler(s store.Store, redis *services.RedisService) *HealthHandler {
	return &HealthHandler{store: s, redis: redis}
}

// Handle responds with server health status
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "healthy"
	storeStatus := "ok"
	if pinger, ok := h.store.(store.Pinger); ok {
		if err := pinger.Ping(ctx); err != nil {
			storeStatus = "unavailable"
			status = "degraded"
		}
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := h.redis.Ping(ctx); err != nil {
			redisStatus = "unavailable"
			status = "degraded"
		}
	}

	code := fiber.StatusOK
	if storeStatus != "ok" {
		code = fiber.StatusServiceUnavailable
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    status,
		"store":     fiber.Map{"backend": h.store.Backend(), "status": storeStatus},
		"redis":     redisStatus,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
