package api

import (
	"fmt"
	"net/http"
	"strings"

	"radiowave/internal/storage"
)

type createClientRequest struct {
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Company        string  `json:"company"`
	Status         string  `json:"status"`
	MaxStreams     int     `json:"maxStreams"`
	MaxListeners   int     `json:"maxListeners"`
	BandwidthLimit int     `json:"bandwidthLimit"`
	BillingPlan    string  `json:"billingPlan"`
	MonthlyFee     float64 `json:"monthlyFee"`
}

type updateClientRequest struct {
	Name           *string  `json:"name"`
	Email          *string  `json:"email"`
	Phone          *string  `json:"phone"`
	Company        *string  `json:"company"`
	Status         *string  `json:"status"`
	MaxStreams     *int     `json:"maxStreams"`
	MaxListeners   *int     `json:"maxListeners"`
	BandwidthLimit *int     `json:"bandwidthLimit"`
	BillingPlan    *string  `json:"billingPlan"`
	MonthlyFee     *float64 `json:"monthlyFee"`
}

// Clients lists client accounts with usage counts or registers a new one.
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
			return
		}
		writeJSON(w, http.StatusOK, h.Store.ListClients())
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		var req createClientRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		client, err := h.Store.CreateClient(storage.CreateClientParams{
			Name:           req.Name,
			Email:          req.Email,
			Phone:          req.Phone,
			Company:        req.Company,
			Status:         req.Status,
			MaxStreams:     req.MaxStreams,
			MaxListeners:   req.MaxListeners,
			BandwidthLimit: req.BandwidthLimit,
			BillingPlan:    req.BillingPlan,
			MonthlyFee:     req.MonthlyFee,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, client)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

// ClientByID routes /api/clients/{id} and its nested streams and billing
// collections.
func (h *Handler) ClientByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/clients/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("client id missing"))
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "streams":
			h.clientStreams(w, r, id)
		case "billing":
			h.clientBilling(w, r, id)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown client resource %s", parts[1]))
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, fmt.Errorf("invalid client path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
			return
		}
		client, exists := h.Store.GetClient(id)
		if !exists {
			writeError(w, http.StatusNotFound, fmt.Errorf("client %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, client)
	case http.MethodPut:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		var req updateClientRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		client, err := h.Store.UpdateClient(id, storage.ClientUpdate{
			Name:           req.Name,
			Email:          req.Email,
			Phone:          req.Phone,
			Company:        req.Company,
			Status:         req.Status,
			MaxStreams:     req.MaxStreams,
			MaxListeners:   req.MaxListeners,
			BandwidthLimit: req.BandwidthLimit,
			BillingPlan:    req.BillingPlan,
			MonthlyFee:     req.MonthlyFee,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, client)
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteClient(id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, PUT, DELETE")
	}
}

// clientStreams handles the nested stream collection for one client.
func (h *Handler) clientStreams(w http.ResponseWriter, r *http.Request, clientID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
			return
		}
		if _, exists := h.Store.GetClient(clientID); !exists {
			writeError(w, http.StatusNotFound, fmt.Errorf("client %s not found", clientID))
			return
		}
		writeJSON(w, http.StatusOK, h.Store.ListStreams(clientID))
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		var req createStreamRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		stream, err := h.Store.CreateStream(clientID, storage.CreateStreamParams{
			Name:         req.Name,
			Description:  req.Description,
			Port:         req.Port,
			MountPoint:   req.MountPoint,
			Bitrate:      req.Bitrate,
			Format:       req.Format,
			MaxListeners: req.MaxListeners,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, stream)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

// clientBilling lists a client's invoices or raises a new one for the current
// billing period.
func (h *Handler) clientBilling(w http.ResponseWriter, r *http.Request, clientID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireRole(w, r, roleAdmin, roleBilling); !ok {
			return
		}
		if _, exists := h.Store.GetClient(clientID); !exists {
			writeError(w, http.StatusNotFound, fmt.Errorf("client %s not found", clientID))
			return
		}
		writeJSON(w, http.StatusOK, h.Store.ListBillingRecords(clientID))
	case http.MethodPost:
		if _, ok := h.requireRole(w, r, roleAdmin, roleBilling); !ok {
			return
		}
		record, err := h.Store.GenerateBillingRecord(clientID)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}
