package main

import (
	"net/url"
	"strings"

	"radiowave/internal/server"
)

type startupSummaryInput struct {
	StorageDriver    string
	StoragePath      string
	StorageDSN       string
	RateLimit        server.RateLimitConfig
	LiveCacheDriver  string
	LiveCacheAddr    string
	BackendBaseURL   string
	BackendEnabled   bool
	CollectorEnabled bool
}

type startupSummary struct {
	input startupSummaryInput
}

func newStartupSummary(input startupSummaryInput) startupSummary {
	return startupSummary{input: input}
}

// LogArgs renders the summary as slog key/value pairs. Connection strings are
// redacted before they reach the log stream.
func (s startupSummary) LogArgs() []any {
	datastore := map[string]any{"driver": s.input.StorageDriver}
	if s.input.StoragePath != "" {
		datastore["path"] = s.input.StoragePath
	}
	if s.input.StorageDSN != "" {
		datastore["dsn"] = redactDSN(s.input.StorageDSN)
	}

	login := map[string]any{"driver": "memory"}
	if strings.TrimSpace(s.input.RateLimit.RedisAddr) != "" {
		login["driver"] = "redis"
		login["addr"] = s.input.RateLimit.RedisAddr
	}
	if s.input.RateLimit.LoginLimit > 0 {
		login["limit"] = s.input.RateLimit.LoginLimit
		login["window"] = s.input.RateLimit.LoginWindow.String()
	}

	liveCache := map[string]any{"driver": s.input.LiveCacheDriver}
	if s.input.LiveCacheAddr != "" {
		liveCache["addr"] = s.input.LiveCacheAddr
	}

	backend := map[string]any{"enabled": s.input.BackendEnabled}
	if s.input.BackendBaseURL != "" {
		backend["api"] = s.input.BackendBaseURL
	}
	backend["collector"] = s.input.CollectorEnabled

	return []any{
		"datastore", datastore,
		"session_store", map[string]any{"driver": "memory"},
		"login_throttle", login,
		"live_cache", liveCache,
		"backend", backend,
	}
}

// redactDSN masks the password portion of a connection string. Unparseable
// strings are masked entirely rather than risk leaking credentials.
func redactDSN(dsn string) string {
	parsed, err := url.Parse(dsn)
	if err != nil || parsed.Scheme == "" {
		return "*****"
	}
	if parsed.User != nil {
		if _, has := parsed.User.Password(); has {
			parsed.User = url.UserPassword(parsed.User.Username(), "*****")
		}
	}
	return parsed.String()
}
