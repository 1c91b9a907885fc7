package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"intranet/internal/config"
	"intranet/internal/handlers"
	"intranet/internal/logging"
	"intranet/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

// newApp builds the proxy: GET /?url=<feed> answers the raw upstream feed
func newApp(cfg *config.Config, feeds *services.FeedService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Intranet RSS Proxy",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	origins := cfg.AllowedOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,OPTIONS",
	}))

	rss := handlers.NewRSSHandler(feeds)
	app.Get("/", rss.Proxy)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})
	return app
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}
	logging.Init()

	cfg := config.Load()
	port := os.Getenv("RSS_PROXY_PORT")
	if port == "" {
		port = "3002"
	}

	app := newApp(cfg, services.NewFeedService(cfg))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down RSS proxy...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down: %v", err)
		}
	}()

	log.Printf("📰 RSS proxy listening on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("❌ Failed to start RSS proxy: %v", err)
	}
}
