// Command migrate-json-to-postgres migrates stored data from JSON into Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"radiowave/internal/storage"
)

func main() {
	jsonPath := flag.String("json", "data/store.json", "path to the JSON datastore to migrate")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	dsn := strings.TrimSpace(*postgresDSN)
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("RADIOWAVE_POSTGRES_DSN"))
	}
	if dsn == "" {
		dsn = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if dsn == "" {
		logger.Error("postgres DSN required", "hint", "set --postgres-dsn, RADIOWAVE_POSTGRES_DSN, or DATABASE_URL")
		os.Exit(1)
	}

	snapshot, err := storage.LoadSnapshotFromJSON(*jsonPath)
	if err != nil {
		logger.Error("failed to load JSON snapshot", "error", err)
		os.Exit(1)
	}
	counts := snapshot.Counts()
	logger.Info("loaded JSON snapshot", "path", *jsonPath,
		"operators", counts.Operators, "clients", counts.Clients, "streams", counts.Streams)

	ctx := context.Background()
	repo, err := storage.NewPostgresRepository(ctx, dsn)
	if err != nil {
		logger.Error("failed to open postgres repository", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closer, ok := repo.(interface{ Close(context.Context) error }); ok {
			_ = closer.Close(context.Background())
		}
	}()

	if err := storage.ImportSnapshotToPostgres(ctx, repo, snapshot); err != nil {
		logger.Error("failed to import snapshot", "error", err)
		os.Exit(1)
	}

	if err := verifyCounts(ctx, dsn, counts); err != nil {
		logger.Error("verification failed", "error", err)
		os.Exit(1)
	}

	logger.Info("migration completed",
		"operators", counts.Operators, "clients", counts.Clients, "streams", counts.Streams,
		"analytics", counts.Analytics, "billing", counts.Billing, "config", counts.ConfigEntries)
}

func verifyCounts(ctx context.Context, dsn string, counts storage.SnapshotCounts) error {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse verification config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open verification connection: %w", err)
	}
	defer pool.Close()

	checks := []struct {
		name     string
		query    string
		expected int
	}{
		{"operators", "SELECT COUNT(*) FROM operators", counts.Operators},
		{"clients", "SELECT COUNT(*) FROM clients", counts.Clients},
		{"streams", "SELECT COUNT(*) FROM streams", counts.Streams},
		{"analytics_records", "SELECT COUNT(*) FROM analytics_records", counts.Analytics},
		{"billing_records", "SELECT COUNT(*) FROM billing_records", counts.Billing},
		{"config_entries", "SELECT COUNT(*) FROM config_entries", counts.ConfigEntries},
	}

	for _, check := range checks {
		var actual int
		if err := pool.QueryRow(ctx, check.query).Scan(&actual); err != nil {
			return fmt.Errorf("query %s: %w", check.name, err)
		}
		if actual < check.expected {
			return fmt.Errorf("mismatch for %s: expected at least %d, got %d", check.name, check.expected, actual)
		}
	}
	return nil
}
