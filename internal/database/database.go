// Package database manages the SQLite connection and schema migrations.
package database

import (
	"fmt"
	"log/slog"
	"os"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"miru/internal/config"
	"miru/internal/content"
	"miru/internal/events"
	"miru/internal/users"
	"miru/internal/visitors"
)

// Manager owns the gorm connection for the application.
type Manager struct {
	db     *gorm.DB
	logger *slog.Logger
	cfg    *config.Config
}

// NewManager creates a database manager. Connect must be called before use.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger}
}

// Connect opens the SQLite database, applies pragmas and pool limits.
func (m *Manager) Connect() error {
	if err := os.MkdirAll(m.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(m.cfg.DatabaseName), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", m.cfg.DatabaseName, err)
	}

	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA foreign_keys = ON")
	db.Exec("PRAGMA busy_timeout = 5000")

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying sql.DB: %w", err)
	}
	if m.cfg.DatabaseMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(m.cfg.DatabaseMaxOpenConns)
	}
	if m.cfg.DatabaseMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(m.cfg.DatabaseMaxIdleConns)
	}

	m.db = db
	return nil
}

// GetConnection returns the gorm connection, or nil before Connect.
func (m *Manager) GetConnection() *gorm.DB {
	return m.db
}

// Migrate runs schema migrations for all miru models.
func (m *Manager) Migrate() error {
	if m.db == nil {
		return gorm.ErrInvalidDB
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(
			&visitors.Visitor{},
			&events.Event{},
			&users.User{},
			&content.Resource{},
		)
	})
	if err != nil {
		m.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	m.logger.Info("Database migration completed successfully")
	return nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
