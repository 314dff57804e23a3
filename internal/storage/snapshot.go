package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"radiowave/internal/models"
)

// Snapshot is a flattened, order-stable copy of one JSON datastore, used to
// move data between drivers.
type Snapshot struct {
	Operators     []models.Operator
	Clients       []models.Client
	Streams       []models.Stream
	Analytics     []models.AnalyticsRecord
	Billing       []models.BillingRecord
	ConfigEntries []models.ConfigEntry
}

// SnapshotCounts reports how many rows a snapshot holds per entity.
type SnapshotCounts struct {
	Operators     int
	Clients       int
	Streams       int
	Analytics     int
	Billing       int
	ConfigEntries int
}

// Counts tallies the snapshot contents.
func (s Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{
		Operators:     len(s.Operators),
		Clients:       len(s.Clients),
		Streams:       len(s.Streams),
		Analytics:     len(s.Analytics),
		Billing:       len(s.Billing),
		ConfigEntries: len(s.ConfigEntries),
	}
}

// LoadSnapshotFromJSON reads a JSON datastore file and flattens it into a
// snapshot sorted by primary key.
func LoadSnapshotFromJSON(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read store file: %w", err)
	}
	var data dataset
	if err := json.Unmarshal(raw, &data); err != nil {
		return Snapshot{}, fmt.Errorf("decode store file: %w", err)
	}

	snapshot := Snapshot{
		Operators:     make([]models.Operator, 0, len(data.Operators)),
		Clients:       make([]models.Client, 0, len(data.Clients)),
		Streams:       make([]models.Stream, 0, len(data.Streams)),
		Analytics:     make([]models.AnalyticsRecord, 0, len(data.Analytics)),
		Billing:       make([]models.BillingRecord, 0, len(data.Billing)),
		ConfigEntries: make([]models.ConfigEntry, 0, len(data.ConfigEntries)),
	}
	for _, operator := range data.Operators {
		snapshot.Operators = append(snapshot.Operators, operator)
	}
	for _, client := range data.Clients {
		snapshot.Clients = append(snapshot.Clients, client)
	}
	for _, stream := range data.Streams {
		snapshot.Streams = append(snapshot.Streams, stream)
	}
	for _, record := range data.Analytics {
		snapshot.Analytics = append(snapshot.Analytics, record)
	}
	for _, record := range data.Billing {
		snapshot.Billing = append(snapshot.Billing, record)
	}
	for _, entry := range data.ConfigEntries {
		snapshot.ConfigEntries = append(snapshot.ConfigEntries, entry)
	}

	sort.Slice(snapshot.Operators, func(i, j int) bool { return snapshot.Operators[i].ID < snapshot.Operators[j].ID })
	sort.Slice(snapshot.Clients, func(i, j int) bool { return snapshot.Clients[i].ID < snapshot.Clients[j].ID })
	sort.Slice(snapshot.Streams, func(i, j int) bool { return snapshot.Streams[i].ID < snapshot.Streams[j].ID })
	sort.Slice(snapshot.Analytics, func(i, j int) bool { return snapshot.Analytics[i].ID < snapshot.Analytics[j].ID })
	sort.Slice(snapshot.Billing, func(i, j int) bool { return snapshot.Billing[i].ID < snapshot.Billing[j].ID })
	sort.Slice(snapshot.ConfigEntries, func(i, j int) bool { return snapshot.ConfigEntries[i].Key < snapshot.ConfigEntries[j].Key })

	return snapshot, nil
}

// ImportSnapshotToPostgres inserts every snapshot row into the Postgres
// datastore. Rows whose primary key already exists are left untouched, so the
// import can be re-run after a partial failure.
func ImportSnapshotToPostgres(ctx context.Context, repo Repository, snapshot Snapshot) error {
	pg, ok := repo.(*postgresRepository)
	if !ok {
		return fmt.Errorf("import requires a postgres repository, got %T", repo)
	}

	for _, operator := range snapshot.Operators {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO operators (id, email, display_name, roles, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING",
			operator.ID, operator.Email, operator.DisplayName, operator.Roles, operator.PasswordHash, operator.CreatedAt); err != nil {
			return fmt.Errorf("import operator %s: %w", operator.ID, err)
		}
	}
	for _, client := range snapshot.Clients {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO clients ("+clientColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) ON CONFLICT (id) DO NOTHING",
			client.ID, client.Name, client.Email, client.Phone, client.Company, client.Status,
			client.MaxStreams, client.MaxListeners, client.BandwidthLimit, client.BillingPlan, client.MonthlyFee,
			client.CreatedAt, client.UpdatedAt); err != nil {
			return fmt.Errorf("import client %s: %w", client.ID, err)
		}
	}
	for _, stream := range snapshot.Streams {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO streams ("+streamColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15) ON CONFLICT (id) DO NOTHING",
			stream.ID, stream.ClientID, stream.Name, stream.Description, stream.Port, stream.MountPoint,
			stream.Bitrate, stream.Format, stream.MaxListeners, stream.Status, stream.StreamURL,
			stream.AdminPassword, stream.SourcePassword, stream.CreatedAt, stream.UpdatedAt); err != nil {
			return fmt.Errorf("import stream %s: %w", stream.ID, err)
		}
	}
	for _, record := range snapshot.Analytics {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO analytics_records (id, stream_id, recorded_at, listeners, bandwidth_used, current_song) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING",
			record.ID, record.StreamID, record.Timestamp, record.Listeners, record.BandwidthUsed, record.CurrentSong); err != nil {
			return fmt.Errorf("import analytics record %s: %w", record.ID, err)
		}
	}
	for _, record := range snapshot.Billing {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO billing_records (id, client_id, amount, status, billing_period, due_date, paid_date, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) ON CONFLICT (id) DO NOTHING",
			record.ID, record.ClientID, record.Amount, record.Status, record.BillingPeriod,
			record.DueDate, record.PaidDate, record.CreatedAt); err != nil {
			return fmt.Errorf("import billing record %s: %w", record.ID, err)
		}
	}
	for _, entry := range snapshot.ConfigEntries {
		if _, err := pg.pool.Exec(ctx,
			"INSERT INTO config_entries (key, value, category, description, updated_by, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (key) DO NOTHING",
			entry.Key, entry.Value, entry.Category, entry.Description, entry.UpdatedBy, entry.UpdatedAt); err != nil {
			return fmt.Errorf("import config entry %s: %w", entry.Key, err)
		}
	}
	return nil
}
