package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"radiowave/internal/models"
)

type contextKey string

const (
	operatorContextKey contextKey = "authenticatedOperator"

	roleAdmin   = "admin"
	roleBilling = "billing"
	roleViewer  = "viewer"
)

// ContextWithOperator stores the authenticated operator in the provided context.
func ContextWithOperator(ctx context.Context, operator models.Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey, operator)
}

// OperatorFromContext retrieves the authenticated operator from context if present.
func OperatorFromContext(ctx context.Context) (models.Operator, bool) {
	operator, ok := ctx.Value(operatorContextKey).(models.Operator)
	return operator, ok
}

// AuthenticateRequest validates the session token on the request and returns
// the operator it belongs to.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.Operator, error) {
	token := ExtractToken(r)
	if token == "" {
		return models.Operator{}, fmt.Errorf("missing session token")
	}
	operatorID, _, ok, err := h.sessionManager().Validate(token)
	if err != nil {
		return models.Operator{}, err
	}
	if !ok {
		return models.Operator{}, fmt.Errorf("invalid or expired session")
	}
	operator, exists := h.Store.GetOperator(operatorID)
	if !exists {
		return models.Operator{}, fmt.Errorf("account not found")
	}
	return operator, nil
}

func (h *Handler) requireAuthenticatedOperator(w http.ResponseWriter, r *http.Request) (models.Operator, bool) {
	operator, ok := OperatorFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.Operator{}, false
	}
	return operator, true
}

func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (models.Operator, bool) {
	operator, ok := h.requireAuthenticatedOperator(w, r)
	if !ok {
		return models.Operator{}, false
	}
	if len(roles) == 0 {
		return operator, true
	}
	for _, required := range roles {
		if operator.HasRole(required) {
			return operator, true
		}
	}
	WriteError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
	return models.Operator{}, false
}

// ExtractToken pulls the session token from the Authorization header or the
// session cookie, preferring the header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
