package api

import (
	"fmt"
	"net/http"
	"time"

	"radiowave/internal/models"
	"radiowave/internal/observability/metrics"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	ExpiresAt string           `json:"expiresAt"`
	Operator  operatorResponse `json:"operator"`
}

type operatorResponse struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles"`
	CreatedAt   string   `json:"createdAt"`
}

func newOperatorResponse(operator models.Operator) operatorResponse {
	return operatorResponse{
		ID:          operator.ID,
		Email:       operator.Email,
		DisplayName: operator.DisplayName,
		Roles:       append([]string{}, operator.Roles...),
		CreatedAt:   operator.CreatedAt.Format(time.RFC3339Nano),
	}
}

func newAuthResponse(operator models.Operator, expires time.Time) authResponse {
	return authResponse{
		ExpiresAt: expires.UTC().Format(time.RFC3339Nano),
		Operator:  newOperatorResponse(operator),
	}
}

// Login authenticates an operator and issues a session token. Failed
// credentials always return the same generic message.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	operator, err := h.Store.AuthenticateOperator(req.Email, req.Password)
	if err != nil {
		metrics.ObserveLogin("failure")
		writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid credentials"))
		return
	}

	token, expiresAt, err := h.sessionManager().Create(operator.ID)
	if err != nil {
		metrics.ObserveLogin("error")
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	metrics.ObserveLogin("success")
	setSessionCookie(w, r, token, expiresAt)
	writeJSON(w, http.StatusOK, newAuthResponse(operator, expiresAt))
}

// Session resolves the current session on GET and revokes it on DELETE.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing session token"))
			return
		}
		operatorID, expiresAt, ok, err := h.sessionManager().Validate(token)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("invalid or expired session"))
			return
		}
		operator, exists := h.Store.GetOperator(operatorID)
		if !exists {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("account not found"))
			return
		}
		writeJSON(w, http.StatusOK, newAuthResponse(operator, expiresAt))
	case http.MethodDelete:
		token := ExtractToken(r)
		if token == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("missing session token"))
			return
		}
		if err := h.sessionManager().Revoke(token); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		clearSessionCookie(w, r)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, DELETE")
	}
}
