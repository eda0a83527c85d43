package handlers

import (
	"net/http"

	"mediarank/internal/service"
	"mediarank/internal/validation"
)

// RankingHandler serves the comparison loop
type RankingHandler struct {
	rankingService *service.RankingService
}

// NewRankingHandler creates a new ranking handler
func NewRankingHandler(rankingService *service.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

type submitComparisonRequest struct {
	WinnerID int64 `json:"winnerId" validate:"gt=0"`
	LoserID  int64 `json:"loserId" validate:"gt=0"`
}

// GetPair returns two items to compare, or null when the library is too small
func (h *RankingHandler) GetPair(w http.ResponseWriter, r *http.Request) {
	pair, err := h.rankingService.GetComparisonPair(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to select pair")
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// SubmitComparison records the user's choice
func (h *RankingHandler) SubmitComparison(w http.ResponseWriter, r *http.Request) {
	var req submitComparisonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		respondWithServiceError(w, r, err, "")
		return
	}

	result, err := h.rankingService.SubmitComparison(r.Context(), GetUserIDFromContext(r.Context()), req.WinnerID, req.LoserID)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to submit comparison")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHistory lists recent comparisons, newest first
func (h *RankingHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidLimit, "", nil)
		return
	}

	history, err := h.rankingService.GetHistory(r.Context(), GetUserIDFromContext(r.Context()), limit)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}

// ResetRankings restores default ratings and clears the comparison ledger
func (h *RankingHandler) ResetRankings(w http.ResponseWriter, r *http.Request) {
	result, err := h.rankingService.ResetRankings(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to reset rankings")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
