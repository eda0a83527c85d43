package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mediarank/internal/metrics"
	"mediarank/internal/service"
)

// RouterConfig wires services and HTTP policy into the router
type RouterConfig struct {
	Auth    *service.AuthService
	Ranking *service.RankingService
	Library *service.LibraryService
	Stats   *service.StatsService
	Media   *service.MediaService
	Startup *StartupStatus

	CORSAllowedOrigins []string
	RateLimitEnabled   bool
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	mw := NewMiddleware(cfg.Auth)
	ranking := NewRankingHandler(cfg.Ranking)
	library := NewLibraryHandler(cfg.Library)
	stats := NewStatsHandler(cfg.Stats)
	media := NewMediaHandler(cfg.Media)
	startup := cfg.Startup
	if startup == nil {
		startup = NewStartupStatus()
		startup.MarkReady()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", startup.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitEnabled {
			r.Use(httprate.Limit(
				cfg.RateLimitRequests,
				cfg.RateLimitWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(rateLimited),
			))
		}

		r.Group(func(r chi.Router) {
			r.Use(mw.OptionalAuth)
			r.Get("/stats", stats.GetStats)
			r.Get("/stats/top", stats.GetTopItems)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)

			r.Get("/comparisons/pair", ranking.GetPair)
			r.Post("/comparisons", ranking.SubmitComparison)
			r.Get("/comparisons/history", ranking.GetHistory)
			r.Post("/rankings/reset", ranking.ResetRankings)

			r.Post("/stats/init", stats.InitStats)

			r.Get("/library", library.List)
			r.Post("/library", library.Add)
			r.Get("/library/by-rating", library.ListByRating)
			r.Get("/library/{id}", library.Get)
			r.Patch("/library/{id}", library.Update)
			r.Delete("/library/{id}", library.Remove)
			r.Delete("/data", library.ClearAllData)

			r.Post("/media", media.Upsert)
			r.Get("/media/{id}", media.Get)
		})
	})

	return r
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	metrics.APIRateLimitHits.Inc()
	writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: ErrRateLimited})
}
