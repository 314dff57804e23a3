package storage

import (
	"path/filepath"
	"testing"
)

func TestLoadSnapshotFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	if _, err := store.CreateOperator(CreateOperatorParams{
		Email:       "ops@example.com",
		DisplayName: "Ops",
		Password:    "correct horse",
	}); err != nil {
		t.Fatalf("CreateOperator returned error: %v", err)
	}
	client, err := store.CreateClient(CreateClientParams{Name: "Jazz FM", Email: "owner@jazz.fm"})
	if err != nil {
		t.Fatalf("CreateClient returned error: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning Show", Port: 8000, MountPoint: "/morning"})
	if err != nil {
		t.Fatalf("CreateStream returned error: %v", err)
	}
	if _, err := store.AppendAnalyticsRecord(stream.ID, 10, 128, "Song A"); err != nil {
		t.Fatalf("AppendAnalyticsRecord returned error: %v", err)
	}
	if _, err := store.AppendAnalyticsRecord(stream.ID, 20, 128, "Song B"); err != nil {
		t.Fatalf("AppendAnalyticsRecord returned error: %v", err)
	}
	if _, err := store.GenerateBillingRecord(client.ID); err != nil {
		t.Fatalf("GenerateBillingRecord returned error: %v", err)
	}
	if _, err := store.UpsertConfigEntry("server_name", "Radiowave", "general", "", "ops@example.com"); err != nil {
		t.Fatalf("UpsertConfigEntry returned error: %v", err)
	}

	snapshot, err := LoadSnapshotFromJSON(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFromJSON returned error: %v", err)
	}
	counts := snapshot.Counts()
	if counts.Operators != 1 || counts.Clients != 1 || counts.Streams != 1 {
		t.Fatalf("unexpected entity counts: %+v", counts)
	}
	if counts.Analytics != 2 {
		t.Fatalf("expected 2 analytics records, got %d", counts.Analytics)
	}
	if counts.Billing != 1 || counts.ConfigEntries != 1 {
		t.Fatalf("unexpected billing/config counts: %+v", counts)
	}
	if snapshot.Operators[0].PasswordHash == "" {
		t.Fatal("expected password hash to survive the snapshot")
	}
	if snapshot.Streams[0].ClientID != client.ID {
		t.Fatalf("expected stream to reference client %s, got %s", client.ID, snapshot.Streams[0].ClientID)
	}
}

func TestLoadSnapshotFromJSONMissingFile(t *testing.T) {
	if _, err := LoadSnapshotFromJSON(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing store file")
	}
}
