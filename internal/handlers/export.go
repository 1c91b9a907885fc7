package handlers

import (
	"fmt"
	"time"

	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler serves collection spreadsheets
type ExportHandler struct {
	export *services.ExportService
}

// NewExportHandler creates a new export handler
func NewExportHandler(export *services.ExportService) *ExportHandler {
	return &ExportHandler{export: export}
}

// Export streams a collection as .xlsx (admin)
// GET /api/admin/export/:name
func (h *ExportHandler) Export(c *fiber.Ctx) error {
	name := c.Params("name")
	buf, err := h.export.ExportXLSX(c.UserContext(), name)
	if err != nil {
		return writeError(c, err, "export collection")
	}

	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().UTC().Format("20060102"))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.SendStream(buf, buf.Len())
}
