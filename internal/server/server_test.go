package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"radiowave/internal/api"
	"radiowave/internal/auth"
	"radiowave/internal/storage"
)

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	store, err := storage.NewJSONRepository(filepath.Join(t.TempDir(), "radiowave.json"))
	if err != nil {
		t.Fatalf("NewJSONRepository: %v", err)
	}
	if _, err := store.CreateOperator(storage.CreateOperatorParams{
		Email:       "admin@example.com",
		DisplayName: "Admin",
		Password:    "correct horse",
		Roles:       []string{"admin"},
	}); err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}

	handler := api.NewHandler(store, auth.NewSessionManager(time.Hour))
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv, err := New(handler, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func login(t *testing.T, ts *httptest.Server, password string) *http.Response {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": password})
	resp, err := http.Post(ts.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	return resp
}

func TestServerRequiresAuthForAPIRoutes(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/clients")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}

	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("request %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200 unauthenticated, got %d", path, resp.StatusCode)
		}
	}
}

func TestServerLoginThenAuthorizedRequest(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := login(t, ts, "correct horse")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}

	var token string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "radiowave_session" {
			token = cookie.Value
		}
	}
	if token == "" {
		t.Fatal("expected session cookie from login")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/clients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized request: %v", err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with session token, got %d", authed.StatusCode)
	}
}

func TestLoginThrottleLimitsAttempts(t *testing.T) {
	srv := newTestServer(t, Config{
		RateLimit: RateLimitConfig{LoginLimit: 2, LoginWindow: time.Minute},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp := login(t, ts, "wrong password")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, resp.StatusCode)
		}
	}

	resp := login(t, ts, "wrong password")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after exhausting login budget, got %d", resp.StatusCode)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	expect := map[string]string{
		"Content-Security-Policy": defaultContentSecurityPolicy,
		"X-Frame-Options":         "DENY",
		"X-Content-Type-Options":  "nosniff",
		"Referrer-Policy":         "no-referrer",
	}
	for header, want := range expect {
		if got := resp.Header.Get(header); got != want {
			t.Fatalf("%s: expected %q, got %q", header, want, got)
		}
	}
}

func TestRequestIDEchoedAndGenerated(t *testing.T) {
	srv := newTestServer(t, Config{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Fatalf("expected supplied request id to be echoed, got %q", got)
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatal("expected a generated request id")
	}
}

func TestCORSPolicyEnforced(t *testing.T) {
	srv := newTestServer(t, Config{
		CORS: CORSConfig{AllowedOrigins: []string{"https://admin.radiowave.example"}},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://admin.radiowave.example")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://admin.radiowave.example" {
		t.Fatalf("expected allowed origin to be reflected, got %q", got)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown origin, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "origin not allowed") {
		t.Fatalf("expected JSON error body, got %q", string(body))
	}
}

func TestGlobalRateLimit(t *testing.T) {
	srv := newTestServer(t, Config{
		RateLimit: RateLimitConfig{GlobalRPS: 1, GlobalBurst: 1},
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", resp.StatusCode)
	}

	limited := false
	for i := 0; i < 5; i++ {
		resp, err := http.Get(ts.URL + "/healthz")
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("expected the global limiter to reject a burst")
	}
}
