package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mediarank/config.yaml",
}

const devJWTSecret = "mediarank-dev-secret-change-me"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./mediarank.db",
		},
		Auth: AuthConfig{
			JWTSecret: devJWTSecret,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			LockTTL:  5 * time.Second,
			LockWait: 3 * time.Second,
		},
		Ranking: RankingConfig{
			DefaultRating:     1500,
			DefaultRD:         350,
			DefaultVolatility: 0.06,
			RDThreshold:       100,
			HistoryLimit:      50,
			MaxHistoryLimit:   200,
			TopItemsLimit:     10,
		},
		Stats: StatsConfig{
			Timezone: "Local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads configuration with the precedence env > file > defaults
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Database.Type = strings.ToLower(cfg.Database.Type)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var sliceConfigPaths = []string{
	"cors.allowed_origins",
}

// processSliceFields splits comma-separated env values for slice fields
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"port":                  "server.port",
	"http_host":             "server.host",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Database
	"database_type":   "database.type",
	"db_path":         "database.path",
	"database_url":    "database.url",
	"migrations_path": "database.migrations_path",

	// Auth
	"jwt_secret": "auth.jwt_secret",
	"jwt_issuer": "auth.issuer",

	// Redis
	"redis_enabled":   "redis.enabled",
	"redis_addr":      "redis.addr",
	"redis_password":  "redis.password",
	"redis_db":        "redis.db",
	"redis_lock_ttl":  "redis.lock_ttl",
	"redis_lock_wait": "redis.lock_wait",

	// Ranking
	"default_rating":     "ranking.default_rating",
	"default_rd":         "ranking.default_rd",
	"default_volatility": "ranking.default_volatility",
	"rd_threshold":       "ranking.rd_threshold",
	"history_limit":      "ranking.history_limit",
	"max_history_limit":  "ranking.max_history_limit",
	"top_items_limit":    "ranking.top_items_limit",

	// Stats
	"stats_timezone": "stats.timezone",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Rate limiting
	"rate_limit_enabled":  "ratelimit.enabled",
	"rate_limit_requests": "ratelimit.requests",
	"rate_limit_window":   "ratelimit.window",

	// CORS
	"cors_origins": "cors.allowed_origins",
}

// envTransformFunc maps known environment variables onto config paths.
// Unknown variables are dropped so the process environment cannot leak into config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
