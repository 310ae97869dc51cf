// Package geoip resolves IP addresses to country codes using a local
// GeoLite2 database. The feature is optional: when the database file is
// missing or unreadable, lookups return the empty string.
package geoip

import (
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"miru/internal/config"
)

var (
	mu     sync.RWMutex
	reader *geoip2.Reader
	logger = slog.Default()
)

// Init opens the GeoLite2 database configured in cfg. Safe to call when
// the file does not exist; country lookups are simply disabled then.
func Init(cfg *config.Config, l *slog.Logger) {
	if l != nil {
		logger = l
	}

	if cfg.GeoDBPath == "" {
		logger.Debug("GeoIP database path not configured, country lookups disabled")
		return
	}

	if _, err := os.Stat(cfg.GeoDBPath); err != nil {
		logger.Info("GeoLite2 database not found, country lookups disabled",
			slog.String("path", cfg.GeoDBPath))
		return
	}

	db, err := geoip2.Open(cfg.GeoDBPath)
	if err != nil {
		logger.Error("Failed to open GeoLite2 database",
			slog.String("path", cfg.GeoDBPath), slog.Any("error", err))
		return
	}

	mu.Lock()
	reader = db
	mu.Unlock()
	logger.Info("GeoLite2 database loaded", slog.String("path", cfg.GeoDBPath))
}

// CountryCode returns the ISO country code for an IP address, or "" when
// the database is unavailable or the address cannot be resolved.
func CountryCode(ipAddress string) string {
	mu.RLock()
	db := reader
	mu.RUnlock()
	if db == nil {
		return ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return ""
	}

	record, err := db.Country(ip)
	if err != nil {
		return ""
	}
	return record.Country.IsoCode
}

// Close releases the GeoLite2 reader.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if reader != nil {
		reader.Close()
		reader = nil
	}
}
