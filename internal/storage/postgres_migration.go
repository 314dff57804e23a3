package storage

import (
	"context"
	"fmt"
)

// migrationStatements is applied in order on startup. Every statement is
// idempotent so repeated boots against the same database are safe.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS operators (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		roles TEXT[] NOT NULL DEFAULT '{}',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		max_streams INTEGER NOT NULL,
		max_listeners INTEGER NOT NULL,
		bandwidth_limit INTEGER NOT NULL,
		billing_plan TEXT NOT NULL DEFAULT '',
		monthly_fee DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		port INTEGER NOT NULL UNIQUE,
		mount_point TEXT NOT NULL,
		bitrate INTEGER NOT NULL,
		format TEXT NOT NULL,
		max_listeners INTEGER NOT NULL,
		status TEXT NOT NULL,
		stream_url TEXT NOT NULL,
		admin_password TEXT NOT NULL,
		source_password TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS streams_client_idx ON streams (client_id)`,
	// Analytics rows intentionally have no foreign key: history outlives the
	// streams and clients it was collected for.
	`CREATE TABLE IF NOT EXISTS analytics_records (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL,
		listeners INTEGER NOT NULL,
		bandwidth_used DOUBLE PRECISION NOT NULL,
		current_song TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_stream_time_idx ON analytics_records (stream_id, recorded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS billing_records (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		billing_period TEXT NOT NULL,
		due_date TIMESTAMPTZ NOT NULL,
		paid_date TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS billing_client_idx ON billing_records (client_id)`,
	`CREATE TABLE IF NOT EXISTS config_entries (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		category TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		updated_by TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

func (r *postgresRepository) migrate(ctx context.Context) error {
	for _, stmt := range migrationStatements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}
