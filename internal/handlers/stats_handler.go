package handlers

import (
	"net/http"

	"mediarank/internal/models"
	"mediarank/internal/service"
)

// StatsHandler serves the dashboard statistics and leaderboard
type StatsHandler struct {
	statsService *service.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

// GetStats returns the caller's aggregated stats; anonymous callers get zeros
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.GetAggregatedStats(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetTopItems returns the leaderboard; anonymous callers get an empty list
func (h *StatsHandler) GetTopItems(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidLimit, "", nil)
		return
	}
	category := models.MediaType(r.URL.Query().Get("category"))

	top, err := h.statsService.GetTopItems(r.Context(), GetUserIDFromContext(r.Context()), category, limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load top items")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// InitStats creates the caller's stats row when missing
func (h *StatsHandler) InitStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsService.EnsureStats(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to initialize stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
