package storage

import (
	"time"

	"radiowave/internal/icecast"
)

// PostgresConfig collects tuning knobs for the Postgres-backed repository.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	AcquireTimeout      time.Duration
	QueryTimeout        time.Duration
	ApplicationName     string
	BackendController   icecast.Controller
	StreamHost          string
}

// DefaultPostgresQueryTimeout bounds each query when no timeout is
// configured, so a stalled server cannot hang a request indefinitely.
const DefaultPostgresQueryTimeout = 5 * time.Second

func newPostgresConfig(dsn string, opts ...Option) PostgresConfig {
	cfg := PostgresConfig{
		DSN:               dsn,
		BackendController: icecast.NoopController{},
		StreamHost:        DefaultStreamHost,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPostgres(&cfg)
		}
	}
	if cfg.BackendController == nil {
		cfg.BackendController = icecast.NoopController{}
	}
	if cfg.StreamHost == "" {
		cfg.StreamHost = DefaultStreamHost
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultPostgresQueryTimeout
	}
	return cfg
}
