package api

import (
	"fmt"
	"net/http"
	"strings"
)

type updateBillingRequest struct {
	Status string `json:"status"`
}

// Billing lists invoices across all clients, optionally filtered by the
// clientId query parameter.
func (h *Handler) Billing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireRole(w, r, roleAdmin, roleBilling); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.ListBillingRecords(r.URL.Query().Get("clientId")))
}

// BillingByID transitions an invoice to a new status. Moving to paid stamps
// the paid date; moving away clears it.
func (h *Handler) BillingByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/billing/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("billing record id missing"))
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, "PUT")
		return
	}
	if _, ok := h.requireRole(w, r, roleAdmin, roleBilling); !ok {
		return
	}

	var req updateBillingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	record, err := h.Store.UpdateBillingStatus(id, req.Status)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
