package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"mediarank/internal/config"
	"mediarank/internal/database"
	"mediarank/internal/handlers"
	"mediarank/internal/lock"
	"mediarank/internal/logging"
	"mediarank/internal/models"
	"mediarank/internal/rating"
	"mediarank/internal/service"
	"mediarank/internal/stats"
	"mediarank/migrations"
)

func main() {
	// A missing .env is fine; real environment variables take over
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	if cfg.Auth.UsingDevSecret() {
		logging.Warn().Msg("Using the built-in development JWT secret; set JWT_SECRET in production")
	}

	startup := handlers.NewStartupStatus()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	logging.Info().Str("type", cfg.Database.Type).Msg("Database connection established")

	startup.SetCurrentStep(handlers.StepMigrations)
	if err := db.RunMigrations(context.Background(), migrationsFS(cfg.Database.MigrationsPath)); err != nil {
		logging.Fatal().Err(err).Msg("Failed to run migrations")
	}
	startup.CompleteStep(handlers.StepMigrations)
	logging.Info().Msg("Migrations completed successfully")

	startup.SetCurrentStep(handlers.StepServices)
	loc, err := cfg.Stats.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid stats timezone")
	}

	locker, closeLocker := newLocker(cfg.Redis)
	defer closeLocker()

	deps := service.Deps{
		DB:      db,
		Locker:  locker,
		Tracker: stats.NewTracker(loc, cfg.Ranking.RDThreshold),
	}
	settings := service.Settings{
		Defaults: models.RatingDefaults{
			Rating:     cfg.Ranking.DefaultRating,
			RD:         cfg.Ranking.DefaultRD,
			Volatility: cfg.Ranking.DefaultVolatility,
		},
		HistoryLimit:    cfg.Ranking.HistoryLimit,
		MaxHistoryLimit: cfg.Ranking.MaxHistoryLimit,
		TopItemsLimit:   cfg.Ranking.TopItemsLimit,
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:               service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Ranking:            service.NewRankingService(deps, rating.NewRandomSelector(nil), settings),
		Library:            service.NewLibraryService(deps, settings),
		Stats:              service.NewStatsService(deps, settings),
		Media:              service.NewMediaService(deps),
		Startup:            startup,
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitEnabled:   cfg.RateLimit.Enabled,
		RateLimitRequests:  cfg.RateLimit.Requests,
		RateLimitWindow:    cfg.RateLimit.Window,
	})
	startup.CompleteStep(handlers.StepServices)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server failed")
		}
	}()
	startup.MarkReady()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logging.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Server forced to shutdown")
	}
	logging.Info().Msg("Server stopped")
}

// migrationsFS prefers an on-disk migrations directory when one is configured
func migrationsFS(path string) fs.FS {
	if path != "" {
		return os.DirFS(path)
	}
	return migrations.FS
}

// newLocker returns the Redis-backed lock when Redis is enabled, otherwise an
// in-process one
func newLocker(cfg config.RedisConfig) (lock.Locker, func()) {
	if !cfg.Enabled {
		logging.Info().Msg("Using in-process user locks")
		return lock.NewLocalLocker(), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logging.Fatal().Err(err).Str("addr", cfg.Addr).Msg("Failed to connect to Redis")
	}

	logging.Info().Str("addr", cfg.Addr).Msg("Using Redis user locks")
	return lock.NewRedisLocker(client, cfg.LockTTL, cfg.LockWait), func() {
		if err := client.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
