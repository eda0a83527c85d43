package config

import (
	"fmt"
	"time"

	"mediarank/internal/validation"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Auth      AuthConfig      `koanf:"auth"`
	Redis     RedisConfig     `koanf:"redis"`
	Ranking   RankingConfig   `koanf:"ranking"`
	Stats     StatsConfig     `koanf:"stats"`
	Logging   LoggingConfig   `koanf:"logging"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	CORS      CORSConfig      `koanf:"cors"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns the host:port the server listens on
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the SQL backend. Path is used by sqlite, URL by postgres and mysql.
type DatabaseConfig struct {
	Type           string `koanf:"type" validate:"oneof=sqlite sqlite3 postgres postgresql mysql"`
	Path           string `koanf:"path"`
	URL            string `koanf:"url"`
	MigrationsPath string `koanf:"migrations_path"` // empty uses the embedded migrations
}

// AuthConfig configures bearer token verification
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=16"`
	Issuer    string `koanf:"issuer"`
}

// UsingDevSecret reports whether the built-in development secret is still in use
func (a AuthConfig) UsingDevSecret() bool {
	return a.JWTSecret == devJWTSecret
}

// RedisConfig enables the distributed per-user lock
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"min=0"`
	LockTTL  time.Duration `koanf:"lock_ttl" validate:"gt=0"`
	LockWait time.Duration `koanf:"lock_wait" validate:"gt=0"`
}

// RankingConfig holds rating defaults and list limits
type RankingConfig struct {
	DefaultRating     float64 `koanf:"default_rating"`
	DefaultRD         float64 `koanf:"default_rd" validate:"gt=0"`
	DefaultVolatility float64 `koanf:"default_volatility" validate:"gt=0"`
	RDThreshold       float64 `koanf:"rd_threshold" validate:"gt=0"`
	HistoryLimit      int     `koanf:"history_limit" validate:"min=1"`
	MaxHistoryLimit   int     `koanf:"max_history_limit" validate:"min=1"`
	TopItemsLimit     int     `koanf:"top_items_limit" validate:"min=1"`
}

// StatsConfig controls the calendar used for streaks and the activity window
type StatsConfig struct {
	Timezone string `koanf:"timezone" validate:"required"`
}

// LoggingConfig mirrors logging.Config
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// RateLimitConfig configures per-IP request limiting
type RateLimitConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Requests int           `koanf:"requests" validate:"min=1"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
}

// CORSConfig lists origins allowed to call the API from a browser
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// Validate checks field constraints and cross-field rules
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	switch c.Database.Type {
	case "postgres", "postgresql", "mysql":
		if c.Database.URL == "" {
			return validation.ValidationError{Field: "database.url", Message: "is required for " + c.Database.Type}
		}
	default:
		if c.Database.Path == "" {
			return validation.ValidationError{Field: "database.path", Message: "is required for sqlite"}
		}
	}

	if c.Ranking.HistoryLimit > c.Ranking.MaxHistoryLimit {
		return validation.ValidationError{Field: "ranking.history_limit", Message: "must not exceed max_history_limit"}
	}

	if _, err := c.Stats.Location(); err != nil {
		return validation.ValidationError{Field: "stats.timezone", Message: err.Error()}
	}

	return nil
}

// Location resolves the configured timezone. "Local" and "" mean the server's zone.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}
