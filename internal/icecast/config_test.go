package icecast

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("RADIOWAVE_ICECAST_API", "http://icecast.internal:8000")
	t.Setenv("RADIOWAVE_ICECAST_USERNAME", "admin")
	t.Setenv("RADIOWAVE_ICECAST_PASSWORD", "secret")
	t.Setenv("RADIOWAVE_ICECAST_TIMEOUT", "3s")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}
	if !cfg.Enabled() {
		t.Fatal("expected config to be enabled")
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("expected 3s timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.HealthEndpoint != "/admin/stats" {
		t.Fatalf("unexpected health endpoint %q", cfg.HealthEndpoint)
	}
	if _, err := cfg.NewHTTPController(); err != nil {
		t.Fatalf("NewHTTPController returned error: %v", err)
	}
}

func TestLoadConfigFromEnvDisabled(t *testing.T) {
	t.Setenv("RADIOWAVE_ICECAST_API", "")
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv returned error: %v", err)
	}
	if cfg.Enabled() {
		t.Fatal("expected config to be disabled without a base URL")
	}
}

func TestValidateRejectsIncompleteConfig(t *testing.T) {
	cases := []Config{
		{BaseURL: "icecast.internal:8000", Username: "admin", Password: "x"},
		{BaseURL: "http://icecast.internal:8000", Password: "x"},
		{BaseURL: "http://icecast.internal:8000", Username: "admin"},
	}
	for i, cfg := range cases {
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
