package handlers

import (
	"errors"

	"intranet/internal/config"
	"intranet/internal/models"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SettingsHandler serves portal settings: embeds for everyone, the admin config document for admins
type SettingsHandler struct {
	settings     *config.SettingsHolder
	portalConfig *services.PortalConfigService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *config.SettingsHolder, portalConfig *services.PortalConfigService) *SettingsHandler {
	return &SettingsHandler{settings: settings, portalConfig: portalConfig}
}

// Embeds returns the dashboard embed configuration and default feeds
// GET /api/embeds
func (h *SettingsHandler) Embeds(c *fiber.Ctx) error {
	current := h.settings.Get()
	feeds := current.Feeds
	if feeds == nil {
		feeds = []string{}
	}
	return c.JSON(fiber.Map{
		"embeds": current.Embeds,
		"feeds":  feeds,
	})
}

// GetConfig returns the config/admin document (admin)
// GET /api/admin/config
func (h *SettingsHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.portalConfig.Get(c.UserContext())
	if errors.Is(err, services.ErrConfigMissing) {
		return c.JSON(models.PortalConfig{AdminEmails: []string{}, SuperAdminEmails: []string{}})
	}
	if err != nil {
		return writeError(c, err, "load portal config")
	}
	return c.JSON(cfg)
}

// PutConfig replaces the config/admin document (admin)
// PUT /api/admin/config
func (h *SettingsHandler) PutConfig(c *fiber.Ctx) error {
	var cfg models.PortalConfig
	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := h.portalConfig.Put(c.UserContext(), &cfg); err != nil {
		return writeError(c, err, "save portal config")
	}
	return c.JSON(cfg)
}
