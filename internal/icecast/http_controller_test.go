package icecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		Username:       "admin",
		Password:       "hackme",
		RequestTimeout: time.Second,
	}
}

func TestStatsParsesSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/stats" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "hackme" {
			t.Fatalf("missing or wrong basic auth (%q, %q)", user, pass)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"/stream":{"listeners":5,"peak_listeners":9,"bitrate":128,"current_title":"Night Drive"}}`))
	}))
	defer server.Close()

	controller := NewHTTPController(testConfig(server.URL))
	snapshot := controller.Stats(context.Background())
	stats, ok := snapshot["/stream"]
	if !ok {
		t.Fatalf("expected /stream in snapshot, got %v", snapshot)
	}
	if stats.Listeners != 5 || stats.PeakListeners != 9 || stats.Bitrate != 128 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.CurrentTitle != "Night Drive" {
		t.Fatalf("unexpected title %q", stats.CurrentTitle)
	}
}

func TestStatsFailuresCollapseToEmptySnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	controller := NewHTTPController(testConfig(server.URL))
	if snapshot := controller.Stats(context.Background()); len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot on auth failure, got %v", snapshot)
	}

	// Unreachable backend behaves the same way.
	server.Close()
	if snapshot := controller.Stats(context.Background()); len(snapshot) != 0 {
		t.Fatalf("expected empty snapshot on network failure, got %v", snapshot)
	}
}

func TestControlReportsOutcomeWithoutRaising(t *testing.T) {
	var gotPath, gotMount string
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMount = r.URL.Query().Get("mount")
		w.WriteHeader(status)
	}))
	defer server.Close()

	controller := NewHTTPController(testConfig(server.URL))

	result := controller.Control(context.Background(), "/stream", ActionEnable)
	if !result.OK {
		t.Fatalf("expected success, got %+v", result)
	}
	if gotPath != "/admin/enable" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotMount != "/stream" {
		t.Fatalf("unexpected mount %s", gotMount)
	}

	status = http.StatusForbidden
	result = controller.Control(context.Background(), "/stream", ActionKillSource)
	if result.OK {
		t.Fatal("expected failure for non-200 status")
	}
	if result.Detail == "" {
		t.Fatal("expected diagnostic detail on failure")
	}
}

func TestControlRequiresMountAndAction(t *testing.T) {
	controller := NewHTTPController(testConfig("http://127.0.0.1:1"))
	if result := controller.Control(context.Background(), "", ActionEnable); result.OK {
		t.Fatal("expected failure for empty mount")
	}
	if result := controller.Control(context.Background(), "/stream", ""); result.OK {
		t.Fatal("expected failure for empty action")
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.HealthEndpoint = "/admin/stats"
	controller := NewHTTPController(cfg)
	if status := controller.HealthCheck(context.Background()); status.Status != "ok" {
		t.Fatalf("expected ok health, got %+v", status)
	}

	server.Close()
	if status := controller.HealthCheck(context.Background()); status.Status != "error" {
		t.Fatalf("expected error health for unreachable backend, got %+v", status)
	}
}
