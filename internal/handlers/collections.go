package handlers

import (
	"intranet/internal/middleware"
	"intranet/internal/models"
	"intranet/internal/services"
	"intranet/internal/store"

	"github.com/gofiber/fiber/v2"
)

// CollectionHandler serves the generic CRUD routes of the portal collections
type CollectionHandler struct {
	collections  *services.CollectionService
	portalConfig *services.PortalConfigService
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(collections *services.CollectionService, portalConfig *services.PortalConfigService) *CollectionHandler {
	return &CollectionHandler{collections: collections, portalConfig: portalConfig}
}

// List returns the records of a collection the caller may read
// GET /api/collections/:name
func (h *CollectionHandler) List(c *fiber.Ctx) error {
	def, err := h.collections.Definition(c.Params("name"))
	if err != nil {
		return writeError(c, err, "list records")
	}
	viewer := h.viewer(c)
	if !services.CanRead(def, viewer) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	records, err := h.collections.List(c.UserContext(), def.Name)
	if err != nil {
		return writeError(c, err, "list records")
	}
	return c.JSON(services.VisibleRecords(def, records, viewer))
}

// Get returns one record. Records hidden from the caller answer 404.
// GET /api/collections/:name/:id
func (h *CollectionHandler) Get(c *fiber.Ctx) error {
	def, err := h.collections.Definition(c.Params("name"))
	if err != nil {
		return writeError(c, err, "get record")
	}
	viewer := h.viewer(c)
	if !services.CanRead(def, viewer) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	record, err := h.collections.Get(c.UserContext(), def.Name, c.Params("id"))
	if err != nil {
		return writeError(c, err, "get record")
	}
	view, ok := services.VisibleRecord(def, record, viewer)
	if !ok {
		return writeError(c, store.ErrNotFound, "get record")
	}
	return c.JSON(view)
}

// Create adds a record
// POST /api/collections/:name
func (h *CollectionHandler) Create(c *fiber.Ctx) error {
	name := c.Params("name")
	def, err := h.collections.Definition(name)
	if err != nil {
		return writeError(c, err, "create record")
	}
	if def.Write != models.WriteCreateAuthenticated && !h.isAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	var data store.Record
	if err := c.BodyParser(&data); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	record, err := h.collections.Create(c.UserContext(), name, data, middleware.CurrentIdentity(c))
	if err != nil {
		return writeError(c, err, "create record")
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

// Update merges the body into a record
// PATCH /api/collections/:name/:id
func (h *CollectionHandler) Update(c *fiber.Ctx) error {
	if _, err := h.collections.Definition(c.Params("name")); err != nil {
		return writeError(c, err, "update record")
	}
	if !h.isAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	var patch store.Record
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	record, err := h.collections.Update(c.UserContext(), c.Params("name"), c.Params("id"), patch)
	if err != nil {
		return writeError(c, err, "update record")
	}
	return c.JSON(record)
}

// Delete removes a record
// DELETE /api/collections/:name/:id
func (h *CollectionHandler) Delete(c *fiber.Ctx) error {
	if _, err := h.collections.Definition(c.Params("name")); err != nil {
		return writeError(c, err, "delete record")
	}
	if !h.isAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Admin access required"})
	}

	if err := h.collections.Delete(c.UserContext(), c.Params("name"), c.Params("id")); err != nil {
		return writeError(c, err, "delete record")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CollectionHandler) isAdmin(c *fiber.Ctx) bool {
	return callerIsAdmin(c, h.portalConfig)
}

func (h *CollectionHandler) viewer(c *fiber.Ctx) services.Viewer {
	return callerViewer(c, h.portalConfig)
}

// callerIsAdmin checks the role claim, then the admin email lists
func callerIsAdmin(c *fiber.Ctx, portalConfig *services.PortalConfigService) bool {
	if middleware.IsAdmin(c) {
		return true
	}
	email, _ := c.Locals("user_email").(string)
	return portalConfig != nil && portalConfig.IsAdminEmail(c.UserContext(), email)
}

func callerViewer(c *fiber.Ctx, portalConfig *services.PortalConfigService) services.Viewer {
	userID, _ := c.Locals("user_id").(string)
	return services.Viewer{ID: userID, Admin: callerIsAdmin(c, portalConfig)}
}
