package handlers

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"mediarank/internal/lock"
	"mediarank/internal/logging"
	"mediarank/internal/service"
	"mediarank/internal/validation"
)

// errorResponse is the JSON body of every error reply
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Err(err).Int("status", status).Msg(logMsg)
	}

	writeJSON(w, status, errorResponse{Error: userMsg})
}

// respondWithServiceError maps a service error onto an HTTP status
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var vErr validation.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: vErr.Error(), Field: vErr.Field})
	case errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: ErrUnauthorized})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, lock.ErrLockTimeout):
		respondWithError(w, r, http.StatusServiceUnavailable, ErrBusy, logMsg, err)
	default:
		respondWithError(w, r, http.StatusInternalServerError, ErrInternalServerError, logMsg, err)
	}
}
