package handlers

import (
	"context"
	"net/http"

	"github.com/civicgrid/civicgrid-be/internal/auth"
	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/rs/zerolog/log"
)

// maxUploadBytes caps waste photo uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// WasteHandler serves waste photo classification.
type WasteHandler struct {
	waste services.WasteServiceProvider
}

// NewWasteHandler creates a new WasteHandler.
func NewWasteHandler(waste services.WasteServiceProvider) *WasteHandler {
	return &WasteHandler{waste: waste}
}

// Classify accepts a multipart image upload and returns the filtered
// predictions. The inference call runs on the request context, so closing
// the connection cancels it.
func (h *WasteHandler) Classify(w http.ResponseWriter, r *http.Request) {
	s, ok := auth.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "No active session", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "A waste image file is required", Code: "missing-field"})
		return
	}
	defer file.Close()

	result, err := h.waste.Classify(r.Context(), s.Username, header.Filename, file)
	if err != nil {
		if r.Context().Err() == context.Canceled {
			// Client went away; nothing to answer.
			return
		}
		log.Error().Err(err).Str("username", s.Username).Msg("Waste classification failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Classification failed. Please try again or check your connection."})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
