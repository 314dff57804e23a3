package icecast

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Config stores connectivity information for the streaming backend's admin
// interface.
type Config struct {
	BaseURL        string
	Username       string
	Password       string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	HealthEndpoint string
}

// LoadConfigFromEnv initialises a Config from environment variables. An empty
// RADIOWAVE_ICECAST_API leaves the config disabled; callers should fall back
// to a NoopController in that case.
func LoadConfigFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:        strings.TrimSpace(os.Getenv("RADIOWAVE_ICECAST_API")),
		Username:       strings.TrimSpace(os.Getenv("RADIOWAVE_ICECAST_USERNAME")),
		Password:       os.Getenv("RADIOWAVE_ICECAST_PASSWORD"),
		HealthEndpoint: strings.TrimSpace(os.Getenv("RADIOWAVE_ICECAST_HEALTH")),
		RequestTimeout: 10 * time.Second,
	}

	if timeout := strings.TrimSpace(os.Getenv("RADIOWAVE_ICECAST_TIMEOUT")); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse RADIOWAVE_ICECAST_TIMEOUT: %w", err)
		}
		if parsed > 0 {
			cfg.RequestTimeout = parsed
		}
	}

	if cfg.HealthEndpoint == "" {
		cfg.HealthEndpoint = "/admin/stats"
	}

	if cfg.Enabled() {
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// Enabled reports whether a backend endpoint is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.BaseURL) != ""
}

// Validate checks the configuration for an enabled backend.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("icecast base URL is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("icecast base URL %q must include a scheme", c.BaseURL)
	}
	if strings.TrimSpace(c.Username) == "" {
		return errors.New("icecast admin username is required")
	}
	if c.Password == "" {
		return errors.New("icecast admin password is required")
	}
	return nil
}

// NewHTTPController builds an HTTPController from the configuration.
func (c Config) NewHTTPController() (*HTTPController, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &HTTPController{config: c}, nil
}
