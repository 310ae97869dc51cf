// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// JWT verification for the admin query API. The token itself is issued
	// by the main site; miru only verifies it.
	JWTSecret     string `mapstructure:"jwtsecret"`
	AdminMinRole  int    `mapstructure:"adminminrole"`

	// File paths
	StoragePath  string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from StoragePath
	GeoDBPath    string `mapstructure:"geodbpath"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Ingestion limits
	MaxEventsPerBatch int `mapstructure:"maxeventsperbatch"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		v.SetDefault("appname", "miru")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("jwtsecret", "")
		v.SetDefault("adminminrole", 2)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-City.mmdb")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("maxeventsperbatch", 100)

		v.BindEnv("appname", "MIRU_APP_NAME")
		v.BindEnv("appport", "MIRU_APP_PORT")
		v.BindEnv("environment", "MIRU_ENV")
		v.BindEnv("loglevel", "MIRU_LOG_LEVEL")
		v.BindEnv("jwtsecret", "MIRU_JWT_SECRET")
		v.BindEnv("adminminrole", "MIRU_ADMIN_MIN_ROLE")
		v.BindEnv("storagepath", "MIRU_STORAGE_PATH")
		v.BindEnv("geodbpath", "MIRU_GEO_DB_PATH")
		v.BindEnv("logsdir", "MIRU_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "MIRU_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "MIRU_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "MIRU_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "MIRU_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "MIRU_DB_MAX_IDLE_CONNS")
		v.BindEnv("maxeventsperbatch", "MIRU_MAX_EVENTS_PER_BATCH")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

func (c *Config) validate() error {
	switch c.Environment {
	case Development, Production, Test:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}

	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.Environment == Production && c.JWTSecret == "" {
		return fmt.Errorf("MIRU_JWT_SECRET must be set in production")
	}

	if c.MaxEventsPerBatch <= 0 {
		return fmt.Errorf("maxeventsperbatch must be positive")
	}

	return nil
}

// GetDatabasePath returns the full path to the SQLite database file
func (c *Config) GetDatabasePath() string {
	name := fmt.Sprintf("%s-%s.db", c.AppName, c.Environment)
	return filepath.Join(c.StoragePath, name)
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest reports whether the app runs in the test environment
func (c *Config) IsTest() bool {
	return c.Environment == Test
}
