package handlers

import (
	"log"
	"time"

	"intranet/internal/models"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DocumentHandler audits document downloads and lists the audit trail
type DocumentHandler struct {
	collections *services.CollectionService
	audit       *services.AuditService
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(collections *services.CollectionService, audit *services.AuditService) *DocumentHandler {
	return &DocumentHandler{collections: collections, audit: audit}
}

// Download records a document_download event and returns the document url
// POST /api/documents/:id/download
func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	docID := c.Params("id")

	record, err := h.collections.Get(c.UserContext(), models.CollectionDocuments, docID)
	if err != nil {
		return writeError(c, err, "get document")
	}
	url, _ := record["url"].(string)
	title, _ := record["title"].(string)

	if _, err := h.audit.Record(c.UserContext(), models.AuditDocumentDownload, userID, map[string]interface{}{
		"documentId": docID,
		"title":      title,
		"userAgent":  c.Get(fiber.HeaderUserAgent),
	}); err != nil {
		// The download is still served
		log.Printf("⚠️  [AUDIT] Failed to record download of %s by %s: %v", docID, userID, err)
	}

	return c.JSON(fiber.Map{"url": url})
}

// ListAudit returns audit events newest first (admin)
// GET /api/admin/audit?eventType=&userId=&since=&limit=
func (h *DocumentHandler) ListAudit(c *fiber.Ctx) error {
	filter := models.AuditFilter{
		EventType: c.Query("eventType"),
		UserID:    c.Query("userId"),
		Limit:     c.QueryInt("limit", 0),
	}
	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "since must be an RFC3339 timestamp"})
		}
		filter.Since = &t
	}

	entries, err := h.audit.List(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err, "list audit events")
	}
	return c.JSON(entries)
}
