package api

import (
	"net/http"
	"strings"
	"time"

	"radiowave/internal/auth"
	"radiowave/internal/observability/metrics"
	"radiowave/internal/storage"
	"radiowave/internal/telemetry"
)

// Handler exposes the RadioWave admin API over HTTP. Store and Sessions are
// required; Live is optional and enriches stream responses with cached
// listener telemetry when a cache is wired in.
type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Live     telemetry.Cache
}

func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

const sessionCookieName = "radiowave_session"

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	if token == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	return false
}

// Health reports the connectivity of the streaming backend alongside the
// overall service status. It is mounted unauthenticated.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}

	status := "ok"
	check := h.Store.BackendHealth(r.Context())
	switch strings.ToLower(check.Status) {
	case "ok", "disabled":
	default:
		status = "degraded"
	}
	metrics.SetBackendHealth(check.Component, check.Status)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   status,
		"services": []interface{}{check},
	})
}
