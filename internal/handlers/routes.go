package handlers

import (
	"intranet/internal/config"
	"intranet/internal/middleware"
	"intranet/internal/services"
	"intranet/internal/store"
	"intranet/pkg/auth"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Dependencies are the services the portal routes are built on
type Dependencies struct {
	Config       *config.Config
	Settings     *config.SettingsHolder
	Store        store.Store
	Redis        *services.RedisService
	Tokens       *auth.TokenService
	RateLimits   *middleware.RateLimitConfig
	PortalConfig *services.PortalConfigService
	Users        *services.UserService
	Collections  *services.CollectionService
	Fab          *services.FabService
	Feeds        *services.FeedService
	Billing      *services.BillingService
	Audit        *services.AuditService
	Polls        *services.PollService
	Workflows    *services.WorkflowService
	Content      *services.ContentService
	Export       *services.ExportService
}

// RegisterRoutes mounts every portal route on app
func RegisterRoutes(app *fiber.App, d *Dependencies) {
	healthHandler := NewHealthHandler(d.Store, d.Redis)
	authHandler := NewAuthHandler(d.Users)
	collectionHandler := NewCollectionHandler(d.Collections, d.PortalConfig)
	collectionWSHandler := NewCollectionWSHandler(d.Store, d.PortalConfig)
	fabHandler := NewFabHandler(d.Fab)
	rssHandler := NewRSSHandler(d.Feeds)
	billingHandler := NewBillingHandler(d.Billing)
	documentHandler := NewDocumentHandler(d.Collections, d.Audit)
	pollHandler := NewPollHandler(d.Polls)
	workflowHandler := NewWorkflowHandler(d.Workflows)
	newsHandler := NewNewsHandler(d.Content, d.Collections)
	exportHandler := NewExportHandler(d.Export)
	settingsHandler := NewSettingsHandler(d.Settings, d.PortalConfig)

	limits := d.RateLimits
	if limits == nil {
		limits = middleware.DefaultRateLimitConfig()
	}

	app.Get("/health", healthHandler.Handle)

	requireAuth := middleware.LocalAuthMiddleware(d.Tokens)
	requireAdmin := middleware.AdminMiddleware(d.PortalConfig)

	api := app.Group("/api", middleware.GlobalAPIRateLimiter(limits))

	// Auth
	api.Post("/auth/login", middleware.PublicReadRateLimiter(limits), authHandler.Login)
	api.Post("/auth/refresh", middleware.PublicReadRateLimiter(limits), authHandler.Refresh)
	api.Get("/auth/me", requireAuth, authHandler.Me)

	// RSS
	api.Get("/rss/proxy", middleware.PublicReadRateLimiter(limits), rssHandler.Proxy)
	api.Get("/rss", requireAuth, rssHandler.Aggregate)

	// Billing: the super-admin check is done against config/admin
	api.Get("/billing", requireAuth, billingHandler.Summary)

	// Generic collections
	api.Get("/collections/:name", requireAuth, collectionHandler.List)
	api.Get("/collections/:name/:id", requireAuth, collectionHandler.Get)
	api.Post("/collections/:name", requireAuth, middleware.AuthenticatedRateLimiter(limits), collectionHandler.Create)
	api.Patch("/collections/:name/:id", requireAuth, collectionHandler.Update)
	api.Delete("/collections/:name/:id", requireAuth, collectionHandler.Delete)

	// FAB pipeline
	api.Get("/fab/me", requireAuth, fabHandler.Me)
	api.Post("/fab/me/complete", requireAuth, fabHandler.CompleteMine)
	api.Get("/fab/stats", requireAuth, requireAdmin, fabHandler.Stats)
	api.Get("/fab/tags", requireAuth, requireAdmin, fabHandler.Tags)
	api.Post("/fab/:userId/complete", requireAuth, requireAdmin, fabHandler.Complete)
	api.Post("/fab/:userId/effective/:index", requireAuth, requireAdmin, fabHandler.MarkEffective)
	api.Post("/fab/:userId/activate/:index", requireAuth, requireAdmin, fabHandler.Activate)

	// Content
	api.Get("/news/:id", requireAuth, newsHandler.Get)
	api.Post("/documents/:id/download", requireAuth, documentHandler.Download)
	api.Post("/polls/:id/vote", requireAuth, middleware.AuthenticatedRateLimiter(limits), pollHandler.Vote)
	api.Get("/polls/:id/results", requireAuth, pollHandler.Results)
	api.Post("/workflows/:id/decision", requireAuth, requireAdmin, workflowHandler.Decide)
	api.Get("/embeds", requireAuth, settingsHandler.Embeds)

	// Admin
	admin := api.Group("/admin", requireAuth, requireAdmin)
	admin.Get("/audit", documentHandler.ListAudit)
	admin.Get("/export/:name", exportHandler.Export)
	admin.Get("/config", settingsHandler.GetConfig)
	admin.Put("/config", settingsHandler.PutConfig)
	admin.Post("/users", authHandler.CreateUser)

	// Live collection snapshots
	app.Get("/ws/collections/:name",
		middleware.WebSocketRateLimiter(limits),
		requireAuth,
		collectionWSHandler.Upgrade,
		websocket.New(collectionWSHandler.Handle),
	)
}
