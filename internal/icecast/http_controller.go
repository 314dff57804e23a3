package icecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPController talks to a real Icecast-compatible admin interface.
type HTTPController struct {
	config Config
	logger *slog.Logger
}

// NewHTTPController constructs a controller for the provided configuration
// without validating it. Most callers should go through Config.NewHTTPController.
func NewHTTPController(cfg Config) *HTTPController {
	return &HTTPController{config: cfg}
}

// SetLogger attaches a logger used for swallowed backend failures.
func (c *HTTPController) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Stats fetches a single snapshot of all mounts from /admin/stats. Any
// failure is logged and collapses to an empty snapshot.
func (c *HTTPController) Stats(ctx context.Context) StatsSnapshot {
	endpoint := fmt.Sprintf("%s/admin/stats", strings.TrimRight(c.config.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logFailure("stats request", err)
		return StatsSnapshot{}
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logFailure("stats call", err)
		return StatsSnapshot{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.logFailure("stats call", fmt.Errorf("unexpected status %s", resp.Status))
		return StatsSnapshot{}
	}

	var snapshot StatsSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		c.logFailure("decode stats", err)
		return StatsSnapshot{}
	}
	if snapshot == nil {
		snapshot = StatsSnapshot{}
	}
	return snapshot
}

// Control issues a mount action via /admin/{action}?mount={mount}. HTTP 200
// is success; everything else, including transport errors and timeouts, is a
// failed ControlResult.
func (c *HTTPController) Control(ctx context.Context, mountPoint, action string) ControlResult {
	if strings.TrimSpace(mountPoint) == "" || strings.TrimSpace(action) == "" {
		return ControlResult{Detail: "mount point and action are required"}
	}

	endpoint := fmt.Sprintf("%s/admin/%s?mount=%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		url.PathEscape(action),
		url.QueryEscape(mountPoint),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logFailure("control request", err)
		return ControlResult{Detail: err.Error()}
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		c.logFailure(fmt.Sprintf("control %s %s", action, mountPoint), err)
		return ControlResult{Detail: err.Error()}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		detail := resp.Status
		c.logFailure(fmt.Sprintf("control %s %s", action, mountPoint), fmt.Errorf("unexpected status %s", resp.Status))
		return ControlResult{Detail: detail}
	}
	return ControlResult{OK: true}
}

// HealthCheck probes the configured health endpoint with admin credentials.
func (c *HTTPController) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{Component: "icecast"}
	endpoint := fmt.Sprintf("%s%s", strings.TrimRight(c.config.BaseURL, "/"), c.config.HealthEndpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		status.Status = "error"
		status.Detail = err.Error()
		return status
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		status.Status = "error"
		status.Detail = err.Error()
		return status
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		status.Status = "ok"
	} else {
		status.Status = "error"
		status.Detail = resp.Status
	}
	return status
}

func (c *HTTPController) httpClient() *http.Client {
	if c.config.HTTPClient != nil {
		return c.config.HTTPClient
	}
	timeout := c.config.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *HTTPController) logFailure(operation string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn("icecast backend call failed", "operation", operation, "error", err)
}
