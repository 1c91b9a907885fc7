package middleware

import (
	"log"

	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AdminMiddleware allows admins only. A caller is an admin when the token
// carries the "admin" role claim, or when the email is on the server-side
// admin list (ADMIN_EMAILS merged with config/admin adminEmails).
func AdminMiddleware(portalConfig *services.PortalConfigService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}

		isAdmin := false
		if role, ok := c.Locals("user_role").(string); ok && role == services.RoleAdmin {
			isAdmin = true
		}

		if !isAdmin {
			email, _ := c.Locals("user_email").(string)
			isAdmin = portalConfig != nil && portalConfig.IsAdminEmail(c.UserContext(), email)
		}

		if !isAdmin {
			log.Printf("🚫 [AUTH] Admin access denied for user %s on %s", userID, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}

		c.Locals("is_admin", true)
		return c.Next()
	}
}

// IsAdmin reports whether AdminMiddleware accepted the request, or the token carries the admin role
func IsAdmin(c *fiber.Ctx) bool {
	if v, ok := c.Locals("is_admin").(bool); ok && v {
		return true
	}
	role, _ := c.Locals("user_role").(string)
	return role == services.RoleAdmin
}
