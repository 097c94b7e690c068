// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Import   ImportConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Backup   BackupConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 15s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// StoreConfig selects and configures the key-value backend holding records.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, redis (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	// Path is the SQLite database file (default: data/tqp.db)
	Path string `env:"STORE_PATH" default:"data/tqp.db"`

	// DatabaseURL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// RedisAddr is the Redis host:port (default: localhost:6379)
	RedisAddr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// RedisPassword is the Redis AUTH password
	RedisPassword string `env:"REDIS_PASSWORD"`

	// RedisDB is the Redis logical database (default: 0)
	RedisDB int `env:"REDIS_DB" default:"0"`

	// KeyPrefix is prepended to the persisted keys dq_testcases and dq_connections
	KeyPrefix string `env:"STORE_KEY_PREFIX"`

	// Timeout bounds a single backend call (default: 5s)
	Timeout time.Duration `env:"STORE_TIMEOUT" default:"5s"`
}

// ImportConfig holds file import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// WatchDir is a drop folder imported automatically by the server, empty disables
	WatchDir string `env:"IMPORT_WATCH_DIR"`

	// WatchDebounce is how long a watched file must be quiet before import (default: 500ms)
	WatchDebounce time.Duration `env:"IMPORT_WATCH_DEBOUNCE" default:"500ms"`

	// MaxConcurrent is the number of uploads processed in parallel (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// QueueWait is how long an upload waits for a free slot before rejection (default: 10s)
	QueueWait time.Duration `env:"IMPORT_QUEUE_WAIT" default:"10s"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey rejects API requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP and X-Forwarded-For headers are honored
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RateLimit is the number of requests allowed per client per window, 0 disables (default: 100)
	RateLimit int `env:"RATE_LIMIT" default:"100"`

	// RateWindow is the rate limiting window (default: 1m)
	RateWindow time.Duration `env:"RATE_LIMIT_WINDOW" default:"1m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// BackupConfig holds scheduled snapshot settings.
type BackupConfig struct {
	// Enabled turns on scheduled JSON snapshots (default: false)
	Enabled bool `env:"BACKUP_ENABLED" default:"false"`

	// Schedule is a cron expression or descriptor such as @daily (default: @daily)
	Schedule string `env:"BACKUP_SCHEDULE" default:"@daily"`

	// Dir is where snapshot files are written (default: backups)
	Dir string `env:"BACKUP_DIR" default:"backups"`

	// Keep is how many snapshots per record kind to retain (default: 14)
	Keep int `env:"BACKUP_KEEP" default:"14"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
