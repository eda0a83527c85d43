package handlers

import (
	"net/http"

	"mediarank/internal/models"
	"mediarank/internal/service"
)

// MediaHandler serves the shared media catalog
type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// Upsert creates or refreshes a catalog entry
func (h *MediaHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var input models.MediaItemInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	item, err := h.mediaService.UpsertMediaItem(r.Context(), input)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to upsert media item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Get returns a catalog entry
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	item, err := h.mediaService.GetMediaItem(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load media item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}
