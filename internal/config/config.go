// Package config loads export engine configuration from environment
// variables, applies defaults and validates every setting on startup.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Export   ExportConfig
	Store    StoreConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Notify   NotifyConfig
}

// ServerConfig holds HTTP server settings for the job API.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds draining of HTTP requests and running exports (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for API requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// ExportConfig holds export engine settings.
type ExportConfig struct {
	// Namespace prefixes every artifact filename (default: csr_platform)
	Namespace string `env:"EXPORT_NAMESPACE" default:"csr_platform"`

	// Organization is printed in document footers and badges
	Organization string `env:"EXPORT_ORGANIZATION" default:"CSR Platform"`

	// DownloadDir receives finished artifacts (default: ./downloads)
	DownloadDir string `env:"EXPORT_DOWNLOAD_DIR" default:"./downloads"`

	// DataDir holds one <entity>.json file per entity type (default: ./data)
	DataDir string `env:"EXPORT_DATA_DIR" default:"./data"`

	// ChunkSize is rows written between cancellation checks (default: 500)
	ChunkSize int `env:"EXPORT_CHUNK_SIZE" default:"500"`

	MaxConcurrent int           `env:"EXPORT_MAX_CONCURRENT" default:"3"`
	MaxWait       time.Duration `env:"EXPORT_MAX_WAIT" default:"30s"`
	JobTimeout    time.Duration `env:"EXPORT_JOB_TIMEOUT" default:"10m"`

	// Language is the BCP 47 tag used to collate text when sorting (default: en)
	Language string `env:"EXPORT_LANGUAGE" default:"en"`

	// TimeZone anchors date presets such as "today" (default: Local)
	TimeZone string `env:"EXPORT_TIMEZONE" default:"Local"`

	// HistoryRetention prunes settled jobs older than this (default: 720h)
	HistoryRetention  time.Duration `env:"EXPORT_HISTORY_RETENTION" default:"720h"`
	RetentionInterval time.Duration `env:"EXPORT_RETENTION_INTERVAL" default:"1h"`
}

// Location resolves TimeZone, falling back to the local zone.
func (c *ExportConfig) Location() *time.Location {
	if c.TimeZone == "" || c.TimeZone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.Local
	}
	return loc
}

// StoreConfig selects where job history is persisted.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, redis (default: sqlite)
	Driver string `env:"STORE_DRIVER" default:"sqlite"`

	SQLitePath string `env:"STORE_SQLITE_PATH" default:"./data/history.db"`

	// PostgresURL supports both DATABASE_URL and DB_URL
	PostgresURL      string `env:"DATABASE_URL" envAlt:"DB_URL"`
	PostgresMaxConns int    `env:"DB_MAX_CONNS" default:"4"`
	PostgresMinConns int    `env:"DB_MIN_CONNS" default:"1"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" default:"csrexport:"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File, if set, also writes logs to a rotated file
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" default:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" default:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" default:"30"`
	Compress   bool   `env:"LOG_COMPRESS" default:"true"`
}

// MetricsConfig controls the OpenTelemetry export metrics.
type MetricsConfig struct {
	Enabled  bool          `env:"METRICS_ENABLED" default:"false"`
	Interval time.Duration `env:"METRICS_INTERVAL" default:"1m"`
}

// NotifyConfig controls job notifications.
type NotifyConfig struct {
	// Desktop shows a desktop notification when a job settles (default: false)
	Desktop bool `env:"NOTIFY_DESKTOP" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
