package internal

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	v1 "miru/api/v1"
	"miru/internal/analytics"
	"miru/internal/config"
	"miru/internal/content"
	trackinghttp "miru/internal/http"
	"miru/internal/http/middleware"
)

// ingestRateLimit bounds per-client submissions on the public endpoint.
const (
	ingestRateLimit  = 120
	ingestRateWindow = time.Minute
)

// MountAppRoutes wires the public ingestion API and the admin tracking
// API onto the fiber app.
func MountAppRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config, logger *slog.Logger) {
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	ingest := v1.NewHandler(db, cfg, logger)
	ingestLimiter := limiter.New(limiter.Config{
		Max:        ingestRateLimit,
		Expiration: ingestRateWindow,
	})
	api.Post("/events", ingestLimiter, ingest.CreateEvents)
	api.Post("/events/beacon", ingestLimiter, ingest.CreateEventsBeacon)

	service := analytics.NewService(db, logger, content.NewStore(db))
	tracking := trackinghttp.NewTrackingHandler(service, logger)

	admin := api.Group("/admin/tracking", middleware.RequireAdmin(cfg, logger))
	admin.Get("/overview", tracking.GetOverview)
	admin.Get("/pages", tracking.GetPages)
	admin.Get("/pages/visitors", tracking.GetPageVisitors)
	admin.Get("/contents", tracking.GetContents)
	admin.Get("/contents/visitors", tracking.GetContentVisitors)
	admin.Get("/visitors", tracking.GetVisitors)
	admin.Get("/trend", tracking.GetTrend)
}
