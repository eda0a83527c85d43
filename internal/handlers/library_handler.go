package handlers

import (
	"net/http"

	"mediarank/internal/models"
	"mediarank/internal/service"
)

// LibraryHandler serves library management
type LibraryHandler struct {
	libraryService *service.LibraryService
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(libraryService *service.LibraryService) *LibraryHandler {
	return &LibraryHandler{libraryService: libraryService}
}

// List returns the user's library, most recently added first
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.libraryService.ListLibrary(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list library")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ListByRating returns the user's library by rating, optionally one category
func (h *LibraryHandler) ListByRating(w http.ResponseWriter, r *http.Request) {
	category := models.MediaType(r.URL.Query().Get("category"))
	items, err := h.libraryService.ListByRating(r.Context(), GetUserIDFromContext(r.Context()), category)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to list library by rating")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Add puts a catalog entry into the user's library
func (h *LibraryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input models.AddLibraryItemInput
	if err := decodeJSON(w, r, &input); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	item, err := h.libraryService.AddToLibrary(r.Context(), GetUserIDFromContext(r.Context()), input)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to add library item")
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Get returns one library item with its catalog entry
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	item, err := h.libraryService.GetLibraryItem(r.Context(), GetUserIDFromContext(r.Context()), id)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to load library item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Update applies a partial update to a library item
func (h *LibraryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}
	var update models.LibraryItemUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidJSON, "", nil)
		return
	}

	item, err := h.libraryService.UpdateLibraryItem(r.Context(), GetUserIDFromContext(r.Context()), id, update)
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to update library item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Remove deletes a library item
func (h *LibraryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, r, http.StatusBadRequest, ErrInvalidID, "", nil)
		return
	}

	if err := h.libraryService.RemoveFromLibrary(r.Context(), GetUserIDFromContext(r.Context()), id); err != nil {
		respondWithServiceError(w, r, err, "Failed to remove library item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearAllData deletes everything the user owns
func (h *LibraryHandler) ClearAllData(w http.ResponseWriter, r *http.Request) {
	result, err := h.libraryService.ClearAllData(r.Context(), GetUserIDFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, r, err, "Failed to clear user data")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
