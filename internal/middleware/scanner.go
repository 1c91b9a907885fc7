package middleware

import (
	"log"
	"strings"

	"intranet/internal/config"

	"github.com/gofiber/fiber/v2"
)

// ScannerHeader is set on responses to allowlisted vulnerability scanner requests
const ScannerHeader = "X-Scanner"

// ScannerAllowlist tags requests coming from the authorized vulnerability
// scanner: client IP equal to SCANNER_IP and User-Agent equal to
// SCANNER_USER_AGENT, on one of SCANNER_PATH_PREFIXES. Tagged requests are
// logged and skip the global rate limiter. Everything else passes untouched.
func ScannerAllowlist(cfg *config.Config) fiber.Handler {
	enabled := cfg.ScannerIP != "" && cfg.ScannerUserAgent != ""
	if enabled {
		log.Printf("🛡️  [SCANNER] Allowlist enabled for %s on %v", cfg.ScannerIP, cfg.ScannerPathPrefixes)
	}

	return func(c *fiber.Ctx) error {
		if !enabled || !hasAnyPrefix(c.Path(), cfg.ScannerPathPrefixes) {
			return c.Next()
		}
		if c.IP() != cfg.ScannerIP || c.Get(fiber.HeaderUserAgent) != cfg.ScannerUserAgent {
			return c.Next()
		}

		c.Locals("scanner", true)
		c.Set(ScannerHeader, "allowed")
		log.Printf("🔎 [SCANNER] %s %s from %s", c.Method(), c.Path(), c.IP())
		return c.Next()
	}
}

// IsScanner reports whether the request was tagged by ScannerAllowlist
func IsScanner(c *fiber.Ctx) bool {
	v, ok := c.Locals("scanner").(bool)
	return ok && v
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
