package handlers

import (
	"net/http"

	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/civicgrid/civicgrid-be/internal/monitoring"
	"github.com/civicgrid/civicgrid-be/internal/services"
)

const (
	defaultSeriesDays  = 10
	defaultEventsLimit = 50
)

// AdminHandler serves the admin dashboard data.
type AdminHandler struct {
	stats  services.StatsServiceProvider
	events services.EventServiceProvider
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats services.StatsServiceProvider, events services.EventServiceProvider) *AdminHandler {
	return &AdminHandler{stats: stats, events: events}
}

// Stats returns category totals, the daily trend series, and raw
// classification counts.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	totals, err := h.stats.CategoryTotals()
	if err != nil {
		writeError(w, err)
		return
	}
	series, err := h.stats.DailySeries(defaultSeriesDays)
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := h.stats.ClassificationCounts()
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"categoryTotals":  totals,
		"dailySeries":     series,
		"classifications": counts,
	})
}

// Events returns the most recent audit events.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.GetRecentEvents(defaultEventsLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// System returns a host status snapshot.
func (h *AdminHandler) System(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, monitoring.CurrentHostStatus())
}
