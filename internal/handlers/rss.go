package handlers

import (
	"errors"
	"log"

	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// RSSHandler serves the merged feed and the single-feed proxy
type RSSHandler struct {
	feeds *services.FeedService
}

// NewRSSHandler creates a new RSS handler
func NewRSSHandler(feeds *services.FeedService) *RSSHandler {
	return &RSSHandler{feeds: feeds}
}

// Aggregate merges the feeds listed in ?urls= and returns the newest items
// GET /api/rss?urls=a,b,c
func (h *RSSHandler) Aggregate(c *fiber.Ctx) error {
	urls := services.ParseFeedURLs(c.Query("urls"))
	if len(urls) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The urls query parameter is required",
		})
	}

	items, err := h.feeds.Aggregate(c.UserContext(), urls)
	if err != nil {
		log.Printf("❌ [RSS] Aggregation of %d feeds failed: %v", len(urls), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch RSS feeds",
		})
	}
	return c.JSON(items)
}

// Proxy streams a single upstream feed back with its content type
// GET /?url=<feed> (rssproxy) and GET /api/rss/proxy?url=<feed>
func (h *RSSHandler) Proxy(c *fiber.Ctx) error {
	feedURL := c.Query("url")
	if feedURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The url query parameter is required",
		})
	}

	body, contentType, err := h.feeds.FetchRaw(c.UserContext(), feedURL)
	if err != nil {
		if errors.Is(err, services.ErrInvalidFeedURL) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid feed url"})
		}
		log.Printf("❌ [RSS] Proxy fetch of %s failed: %v", feedURL, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch feed",
		})
	}

	if contentType == "" {
		contentType = "application/xml; charset=utf-8"
	}
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(body)
}
