package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civicgrid/civicgrid-be/internal/apperr"
	"github.com/rs/zerolog/log"
)

// writeJSON renders v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the uniform error payload.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps the platform error kinds onto HTTP statuses. Storage
// faults get a generic message; the cause goes to the log only.
func writeError(w http.ResponseWriter, err error) {
	var validation *apperr.ValidationError
	var conflict *apperr.ConflictError
	var auth *apperr.AuthError
	var storage *apperr.StorageError

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Message, Code: validation.Code})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Message, Code: "duplicate-user"})
	case errors.As(err, &auth):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: auth.Error(), Code: "invalid-credentials"})
	case errors.As(err, &storage):
		log.Error().Err(err).Str("op", storage.Op).Msg("Storage failure")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "The service is temporarily unavailable. Please try again."})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Something went wrong. Please try again."})
	}
}
