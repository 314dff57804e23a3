package storage

import (
	"strings"
	"time"

	"radiowave/internal/icecast"
)

// Option configures either datastore driver. Options that only make sense
// for one driver are ignored by the other.
type Option interface {
	applyJSON(*Storage)
	applyPostgres(*PostgresConfig)
}

type optionAdapter struct {
	json func(*Storage)
	pg   func(*PostgresConfig)
}

func (o optionAdapter) applyJSON(store *Storage) {
	if o.json != nil && store != nil {
		o.json(store)
	}
}

func (o optionAdapter) applyPostgres(cfg *PostgresConfig) {
	if o.pg != nil && cfg != nil {
		o.pg(cfg)
	}
}

func composeOption(json func(*Storage), pg func(*PostgresConfig)) Option {
	return optionAdapter{json: json, pg: pg}
}

func postgresOnlyOption(pg func(*PostgresConfig)) Option {
	return optionAdapter{pg: pg}
}

// WithBackendController installs the streaming backend controller used by
// the stream lifecycle operations.
func WithBackendController(controller icecast.Controller) Option {
	return composeOption(
		func(s *Storage) {
			s.backend = controller
		},
		func(cfg *PostgresConfig) {
			cfg.BackendController = controller
		},
	)
}

// WithStreamHost sets the host used when deriving stream URLs for newly
// created streams.
func WithStreamHost(host string) Option {
	trimmed := strings.TrimSpace(host)
	return composeOption(
		func(s *Storage) {
			if trimmed != "" {
				s.streamHost = trimmed
			}
		},
		func(cfg *PostgresConfig) {
			if trimmed != "" {
				cfg.StreamHost = trimmed
			}
		},
	)
}

// WithPostgresPoolLimits bounds the connection pool size.
func WithPostgresPoolLimits(maxConns, minConns int32) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if maxConns > 0 {
			cfg.MaxConnections = maxConns
		}
		if minConns >= 0 {
			cfg.MinConnections = minConns
		}
	})
}

// WithPostgresPoolDurations tunes connection lifetime, idle time, and health
// check interval for the pool.
func WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if maxLifetime > 0 {
			cfg.MaxConnLifetime = maxLifetime
		}
		if maxIdle > 0 {
			cfg.MaxConnIdleTime = maxIdle
		}
		if healthInterval > 0 {
			cfg.HealthCheckInterval = healthInterval
		}
	})
}

// WithPostgresAcquireTimeout bounds how long the repository waits for a
// connection from the pool.
func WithPostgresAcquireTimeout(timeout time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if timeout > 0 {
			cfg.AcquireTimeout = timeout
		}
	})
}

// WithPostgresQueryTimeout bounds each individual query round-trip.
func WithPostgresQueryTimeout(timeout time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if timeout > 0 {
			cfg.QueryTimeout = timeout
		}
	})
}

// WithPostgresApplicationName sets the application_name reported to Postgres.
func WithPostgresApplicationName(name string) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.ApplicationName = trimmed
		}
	})
}
