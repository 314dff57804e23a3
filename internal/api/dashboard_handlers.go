package api

import (
	"net/http"
	"strconv"
)

const defaultActivityLimit = 20

// DashboardStats returns the aggregate counters for the admin landing page.
// Listener totals reflect the backend's live snapshot.
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
		return
	}
	stats := h.Store.GetDashboardStats(r.Context())
	writeJSON(w, http.StatusOK, stats)
}

// DashboardActivity returns the recent-activity feed, newest first. The limit
// query parameter caps the number of entries and defaults to twenty.
func (h *Handler) DashboardActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
		return
	}

	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeJSON(w, http.StatusOK, h.Store.RecentActivity(limit))
}
