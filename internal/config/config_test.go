package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Ranking.DefaultRating != 1500 || cfg.Ranking.DefaultRD != 350 || cfg.Ranking.DefaultVolatility != 0.06 {
		t.Errorf("unexpected rating defaults: %+v", cfg.Ranking)
	}
	if cfg.Ranking.RDThreshold != 100 {
		t.Errorf("Ranking.RDThreshold = %v, want 100", cfg.Ranking.RDThreshold)
	}
	if cfg.Ranking.HistoryLimit != 50 {
		t.Errorf("Ranking.HistoryLimit = %d, want 50", cfg.Ranking.HistoryLimit)
	}
	if cfg.Ranking.TopItemsLimit != 10 {
		t.Errorf("Ranking.TopItemsLimit = %d, want 10", cfg.Ranking.TopItemsLimit)
	}
	if !cfg.Auth.UsingDevSecret() {
		t.Error("default config should use the development secret")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "9090")
	t.Setenv("DB_PATH", "/tmp/test.db")
	t.Setenv("RD_THRESHOLD", "80")
	t.Setenv("REDIS_LOCK_TTL", "2s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.Ranking.RDThreshold != 80 {
		t.Errorf("Ranking.RDThreshold = %v, want 80", cfg.Ranking.RDThreshold)
	}
	if cfg.Redis.LockTTL != 2*time.Second {
		t.Errorf("Redis.LockTTL = %v, want 2s", cfg.Redis.LockTTL)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORS.AllowedOrigins = %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
stats:
  timezone: UTC
ranking:
  top_items_limit: 25
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("TOP_ITEMS_LIMIT", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Stats.Timezone != "UTC" {
		t.Errorf("Stats.Timezone = %q, want UTC", cfg.Stats.Timezone)
	}
	// env wins over file
	if cfg.Ranking.TopItemsLimit != 30 {
		t.Errorf("Ranking.TopItemsLimit = %d, want 30", cfg.Ranking.TopItemsLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad database type", func(c *Config) { c.Database.Type = "oracle" }, true},
		{"postgres without url", func(c *Config) { c.Database.Type = "postgres" }, true},
		{"postgres with url", func(c *Config) {
			c.Database.Type = "postgres"
			c.Database.URL = "postgres://localhost/mediarank"
		}, false},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, true},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, true},
		{"redis enabled without addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, true},
		{"history above max", func(c *Config) { c.Ranking.HistoryLimit = 500 }, true},
		{"unknown timezone", func(c *Config) { c.Stats.Timezone = "Mars/Olympus" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatsLocation(t *testing.T) {
	loc, err := StatsConfig{Timezone: "Local"}.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Local timezone should resolve to time.Local, got %v, %v", loc, err)
	}

	loc, err = StatsConfig{Timezone: "UTC"}.Location()
	if err != nil || loc.String() != "UTC" {
		t.Errorf("UTC timezone should resolve, got %v, %v", loc, err)
	}
}
