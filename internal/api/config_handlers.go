package api

import (
	"fmt"
	"net/http"
	"strings"
)

type upsertConfigRequest struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Config lists server settings on GET, optionally filtered by the category
// query parameter, and upserts one entry on PUT.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
			return
		}
		writeJSON(w, http.StatusOK, h.Store.ListConfigEntries(r.URL.Query().Get("category")))
	case http.MethodPut:
		operator, ok := h.requireRole(w, r, roleAdmin)
		if !ok {
			return
		}
		var req upsertConfigRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := h.Store.UpsertConfigEntry(req.Key, req.Value, req.Category, req.Description, operator.Email)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w, r, "GET, PUT")
	}
}

// ConfigByKey fetches a single server setting.
func (h *Handler) ConfigByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/config/"), "/")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("config key missing"))
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
		return
	}
	entry, exists := h.Store.GetConfigEntry(key)
	if !exists {
		writeError(w, http.StatusNotFound, fmt.Errorf("config entry %s not found", key))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
