package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/linkspool/linkspool/internal/domain"
	"github.com/linkspool/linkspool/internal/remote"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// mapError translates domain sentinel errors to HTTP status codes.
// All mapping lives here so individual handlers stay concise.
func mapError(w http.ResponseWriter, err error) {
	var remoteErr *remote.Error
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTokenNotSet):
		respondError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidNotes),
		errors.Is(err, domain.ErrInvalidIntent):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &remoteErr) && !remoteErr.Transient:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
