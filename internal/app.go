// Package internal wires the application together: configuration,
// logging, storage, and the HTTP surface.
package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"miru/internal/config"
	"miru/internal/database"
	"miru/internal/logger"
	"miru/internal/pkg/geoip"
)

// Application holds the long-lived pieces of a running miru instance.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.Manager

	fiber *fiber.App
}

// NewApp builds a fully wired application. The database is connected but
// not yet migrated; callers run migrations before starting.
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	log := logger.New(cfg)

	dbManager := database.NewManager(cfg, log)
	if err := dbManager.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	geoip.Init(cfg, log)

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: cfg.IsProduction(),
	})
	MountAppRoutes(app, dbManager.GetConnection(), cfg, log)

	return &Application{
		Config:    cfg,
		Logger:    log,
		DBManager: dbManager,
		fiber:     app,
	}, nil
}

// MigrateDatabase applies schema migrations.
func (a *Application) MigrateDatabase() error {
	return a.DBManager.Migrate()
}

// Start listens on the configured port and blocks until shutdown.
func (a *Application) Start() error {
	addr := ":" + a.Config.AppPort
	a.Logger.Info("Starting HTTP server", slog.String("addr", addr))
	return a.fiber.Listen(addr)
}

// Shutdown drains in-flight requests and releases resources.
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.fiber.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	geoip.Close()
	if err := a.DBManager.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	a.Logger.Info("Shutdown complete")
	return nil
}
