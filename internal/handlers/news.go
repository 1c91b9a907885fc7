package handlers

import (
	"intranet/internal/models"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// NewsHandler serves articles with optional HTML rendering
type NewsHandler struct {
	content     *services.ContentService
	collections *services.CollectionService
}

// NewNewsHandler creates a new news handler
func NewNewsHandler(content *services.ContentService, collections *services.CollectionService) *NewsHandler {
	return &NewsHandler{content: content, collections: collections}
}

// Get returns an article. With ?format=html the markdown content is rendered.
// GET /api/news/:id
func (h *NewsHandler) Get(c *fiber.Ctx) error {
	if c.Query("format") == "html" {
		news, err := h.content.News(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err, "render news")
		}
		return c.JSON(news)
	}

	record, err := h.collections.Get(c.UserContext(), models.CollectionNews, c.Params("id"))
	if err != nil {
		return writeError(c, err, "get news")
	}
	return c.JSON(record)
}
