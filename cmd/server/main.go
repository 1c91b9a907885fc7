package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intranet/internal/config"
	"intranet/internal/handlers"
	"intranet/internal/jobs"
	"intranet/internal/logging"
	"intranet/internal/middleware"
	"intranet/internal/services"
	"intranet/internal/store"
	"intranet/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	logging.Init()
	log.Println("🚀 Starting intranet portal server...")

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (Port: %s, Store: %s, Env: %s)", cfg.Port, cfg.StoreBackend, cfg.Environment)

	services.InitMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backend
	dataStore, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to open store: %v", err)
	}

	// Redis is optional: without it changes stay on this instance and locks are in-process
	var redisService *services.RedisService
	var pubsubService *services.PubSubService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable: %v (single-instance mode)", err)
			redisService = nil
		} else {
			pubsubService = services.NewPubSubService(redisService, uuid.New().String())
			pubsubService.Attach(dataStore.Hub())
			if err := pubsubService.Start(); err != nil {
				log.Printf("⚠️  Failed to start PubSub: %v", err)
			}
		}
	} else {
		log.Println("ℹ️  REDIS_URL not set, running single-instance")
	}
	locker := services.NewLocker(redisService)

	// Auth
	var tokens *auth.TokenService
	if cfg.JWTSecret != "" {
		tokens, err = auth.NewTokenService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
		if err != nil {
			log.Fatalf("❌ Failed to initialize token service: %v", err)
		}
		log.Println("✅ JWT authentication initialized")
	} else {
		if cfg.IsProduction() {
			log.Fatal("❌ CRITICAL SECURITY ERROR: JWT_SECRET is required in production")
		}
		log.Println("⚠️  JWT_SECRET not set - authentication disabled (development mode)")
	}

	// Portal settings
	settings, err := config.NewSettingsHolder(cfg.PortalSettingsFile)
	if err != nil {
		log.Fatalf("❌ Failed to load portal settings: %v", err)
	}
	if err := settings.Watch(ctx); err != nil {
		log.Printf("⚠️  Portal settings will not be hot-reloaded: %v", err)
	}

	// Services
	portalConfig := services.NewPortalConfigService(dataStore, cfg.AdminEmails)
	unwatchConfig := portalConfig.Watch()
	defer unwatchConfig()

	audit := services.NewAuditService(dataStore)
	collections := services.NewCollectionService(dataStore)
	users := services.NewUserService(dataStore, tokens, portalConfig)
	feeds := services.NewFeedService(cfg)
	seeds := services.NewSeedService(dataStore, collections)

	if n, err := seeds.Apply(ctx, settings.Get().Seed); err != nil {
		log.Printf("⚠️  Seeding failed: %v", err)
	} else if n > 0 {
		log.Printf("🌱 Seeded %d records", n)
	}
	settings.OnChange(func(s *config.PortalSettings) {
		if _, err := seeds.Apply(context.Background(), s.Seed); err != nil {
			log.Printf("⚠️  Seeding after settings reload failed: %v", err)
		}
	})

	if err := users.EnsureBootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Printf("⚠️  %v", err)
	}

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Public=%d/min, Auth=%d/min, WS=%d/min",
		rateLimitConfig.GlobalAPIMax,
		rateLimitConfig.PublicReadMax,
		rateLimitConfig.AuthenticatedMax,
		rateLimitConfig.WebSocketMax,
	)

	app := fiber.New(fiber.Config{
		AppName:      "Intranet Portal",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("intranet")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:5173,http://localhost:3000"
		log.Println("⚠️  ALLOWED_ORIGINS not set, using development defaults")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	app.Use(middleware.ScannerAllowlist(cfg))

	handlers.RegisterRoutes(app, &handlers.Dependencies{
		Config:       cfg,
		Settings:     settings,
		Store:        dataStore,
		Redis:        redisService,
		Tokens:       tokens,
		RateLimits:   rateLimitConfig,
		PortalConfig: portalConfig,
		Users:        users,
		Collections:  collections,
		Fab:          services.NewFabService(dataStore, locker),
		Feeds:        feeds,
		Billing:      services.NewBillingService(portalConfig, audit, ""),
		Audit:        audit,
		Polls:        services.NewPollService(dataStore, locker),
		Workflows:    services.NewWorkflowService(dataStore, locker),
		Content:      services.NewContentService(dataStore),
		Export:       services.NewExportService(dataStore),
	})

	// Background jobs
	jobScheduler, err := jobs.NewJobScheduler()
	if err != nil {
		log.Fatalf("❌ Failed to create job scheduler: %v", err)
	}
	if err := jobScheduler.RegisterCron("audit_retention", cfg.AuditRetentionSchedule, jobs.NewAuditRetentionJob(audit, cfg.AuditRetentionDays)); err != nil {
		log.Printf("⚠️  Audit retention disabled: %v", err)
	}
	if err := jobScheduler.RegisterInterval("feed_warmup", cfg.RSSWarmupInterval, true, jobs.NewFeedWarmupJob(feeds, settings)); err != nil {
		log.Printf("⚠️  Feed warm-up disabled: %v", err)
	}
	jobScheduler.Start()
	log.Println("✅ Background job scheduler started")

	log.Printf("✅ Server ready on port %s", cfg.Port)
	log.Printf("🔗 Collection stream: ws://localhost:%s/ws/collections/:name", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("\n🛑 Shutting down server...")

		jobScheduler.Stop()
		cancel()

		if pubsubService != nil {
			if err := pubsubService.Stop(); err != nil {
				log.Printf("⚠️ Error stopping PubSub: %v", err)
			}
		}

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := dataStore.Close(shutdownCtx); err != nil {
		log.Printf("⚠️ Error closing store: %v", err)
	}
	if redisService != nil {
		if err := redisService.Close(); err != nil {
			log.Printf("⚠️ Error closing Redis: %v", err)
		}
	}
	log.Println("👋 Server stopped")
}
