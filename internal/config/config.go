// Package config loads the service configuration from environment
// variables, applying defaults and validating everything up front.
package config

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Ingest   IngestConfig
	Sources  SourcesConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Search   SearchConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for an
	// in-flight ingestion run (default: 60s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"60s"`

	// RequestTimeout is the middleware timeout for API requests (default: 10s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// MigrateOnStart applies pending migrations when the server starts (default: false)
	MigrateOnStart bool `env:"DB_MIGRATE_ON_START" default:"false"`
}

// IngestConfig holds ingestion settings.
type IngestConfig struct {
	// PostcodeBatchSize is the number of postcodes per upsert (default: 10000)
	PostcodeBatchSize int `env:"INGEST_POSTCODE_BATCH_SIZE" default:"10000"`

	// Timeout bounds one full refresh (default: 30m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"30m"`

	// LockWait is how long to wait for a running ingestion to finish (default: 5s)
	LockWait time.Duration `env:"INGEST_LOCK_WAIT" default:"5s"`

	// RefreshInterval schedules periodic refreshes; 0 disables them (default: 0)
	RefreshInterval time.Duration `env:"INGEST_REFRESH_INTERVAL" default:"0s"`

	// AdminEndpoint exposes POST /api/admin/ingest (default: false)
	AdminEndpoint bool `env:"INGEST_ADMIN_ENDPOINT" default:"false"`
}

// SourcesConfig locates the exports. Each value is a local path or a
// gs://bucket/object URL. Unset sources fall back to Dir/<name>.csv.
type SourcesConfig struct {
	Dir             string `env:"SOURCE_DIR"`
	Members         string `env:"SOURCE_MEMBERS"`
	AdviceLocations string `env:"SOURCE_ADVICE_LOCATIONS"`
	OpeningHours    string `env:"SOURCE_OPENING_HOURS"`
	VolunteerRoles  string `env:"SOURCE_VOLUNTEER_ROLES"`
	Accessibility   string `env:"SOURCE_ACCESSIBILITY"`
	Postcodes       string `env:"SOURCE_POSTCODES"`
}

// StorageConfig holds bucket access settings.
type StorageConfig struct {
	// GCSCredentialsFile is a service account key; empty uses application
	// default credentials.
	GCSCredentialsFile string `env:"GCS_CREDENTIALS_FILE" envAlt:"GOOGLE_APPLICATION_CREDENTIALS"`
}

// RedisConfig enables the cross-process ingestion lock when Addr is set.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`

	LockKey string `env:"REDIS_LOCK_KEY" default:"officesearch:ingest:lock"`

	// LockTTL must exceed the longest ingestion run (default: 1h)
	LockTTL time.Duration `env:"REDIS_LOCK_TTL" default:"1h"`
}

// SearchConfig holds resolver settings.
type SearchConfig struct {
	// ResultLimit caps fuzzy and unscoped nearest results (default: 10)
	ResultLimit int `env:"SEARCH_RESULT_LIMIT" default:"10"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `env:"METRICS_ENABLED" default:"true"`
	Path    string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location returns where the named source lives, or "" when neither the
// source nor Dir is configured.
func (s *SourcesConfig) Location(name string) string {
	var explicit string
	switch name {
	case "members":
		explicit = s.Members
	case "advice_locations":
		explicit = s.AdviceLocations
	case "opening_hours":
		explicit = s.OpeningHours
	case "volunteer_roles":
		explicit = s.VolunteerRoles
	case "accessibility":
		explicit = s.Accessibility
	case "postcodes":
		explicit = s.Postcodes
	}
	if explicit != "" || s.Dir == "" {
		return explicit
	}
	if strings.HasPrefix(s.Dir, "gs://") {
		return strings.TrimSuffix(s.Dir, "/") + "/" + name + ".csv"
	}
	return filepath.Join(s.Dir, name+".csv")
}
