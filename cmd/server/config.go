package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"radiowave/internal/observability/metrics"
	"radiowave/internal/storage"
	"radiowave/internal/telemetry"
)

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, bool, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, true, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, true, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", false, nil
	}
	return "", false, fmt.Errorf("no datastore configured: provide --storage-driver json or configure Postgres via RADIOWAVE_POSTGRES_DSN, DATABASE_URL, or --postgres-dsn")
}

func validateProductionDatastore(driver, resolvedPostgresDSN, envPostgresDSN string) error {
	if driver != "postgres" {
		if driver == "" {
			return fmt.Errorf("production mode requires the postgres datastore driver")
		}
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(envPostgresDSN) == "" {
		return fmt.Errorf("production mode requires RADIOWAVE_POSTGRES_DSN to be set")
	}
	if strings.TrimSpace(resolvedPostgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("RADIOWAVE_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

// configureLiveCache picks the live telemetry cache implementation. An empty
// driver selects Redis when an address is configured and falls back to the
// in-process cache otherwise.
func configureLiveCache(driver string, cfg telemetry.RedisCacheConfig) (string, telemetry.Cache, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		if strings.TrimSpace(cfg.Addr) != "" {
			driver = "redis"
		} else {
			driver = "memory"
		}
	}
	switch driver {
	case "redis":
		if strings.TrimSpace(cfg.Addr) == "" {
			return "", nil, fmt.Errorf("redis addr is required for the live telemetry cache")
		}
		cache, err := telemetry.NewRedisCache(cfg)
		if err != nil {
			return "", nil, err
		}
		return "redis", cache, nil
	case "memory":
		return "memory", telemetry.NewMemoryCache(cfg.TTL), nil
	default:
		return "", nil, fmt.Errorf("unsupported live cache driver %q", driver)
	}
}

// seedRunningStreamsGauge primes the running-streams gauge from the datastore
// so a restarted server reports the current count before the first lifecycle
// event or collector tick.
func seedRunningStreamsGauge(recorder *metrics.Recorder, store storage.Repository) {
	recorder.SetRunningStreams(int64(len(store.ListRunningStreams())))
}

// bootstrapOperator seeds an admin account when the datastore holds no
// operators. Both email and password must be supplied to take effect.
func bootstrapOperator(store storage.Repository, logger *slog.Logger, email, displayName, password string) error {
	if email == "" || password == "" {
		return nil
	}
	if len(store.ListOperators()) > 0 {
		return nil
	}
	if displayName == "" {
		displayName = "Administrator"
	}
	operator, err := store.CreateOperator(storage.CreateOperatorParams{
		Email:       email,
		DisplayName: displayName,
		Password:    password,
		Roles:       []string{"admin"},
	})
	if err != nil {
		return err
	}
	logger.Info("seeded bootstrap operator", "email", operator.Email)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}
