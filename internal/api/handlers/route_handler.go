package handlers

import (
	"errors"
	"net/http"

	"github.com/civicgrid/civicgrid-be/internal/services"
	"github.com/rs/zerolog/log"
)

// RouteHandler serves transport route resolution.
type RouteHandler struct {
	resolver services.RouteResolver
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(resolver services.RouteResolver) *RouteHandler {
	return &RouteHandler{resolver: resolver}
}

// Resolve finds a route between the origin and destination query parameters.
func (h *RouteHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	origin := r.URL.Query().Get("origin")
	destination := r.URL.Query().Get("destination")
	if origin == "" || destination == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "origin and destination are required", Code: "missing-field"})
		return
	}

	result, err := h.resolver.Resolve(r.Context(), origin, destination)
	if err != nil {
		if errors.Is(err, services.ErrRouteNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "Could not resolve a route between those places"})
			return
		}
		log.Error().Err(err).Str("origin", origin).Str("destination", destination).Msg("Route resolution failed")
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "Route service is unavailable. Please try again."})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
