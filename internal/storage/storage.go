// Package storage implements the persistence gateway for the radiowave
// admin backend. Two drivers satisfy the Repository interface: a JSON-file
// datastore used for development and tests, and a Postgres datastore built
// on pgx. The stream lifecycle operations also live here so that the stored
// status always reflects the outcome of the most recent backend control
// call.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"radiowave/internal/icecast"
	"radiowave/internal/models"
)

// DefaultStreamHost is used to derive stream URLs when no host is configured.
const DefaultStreamHost = "radio-server.com"

type dataset struct {
	Clients       map[string]models.Client          `json:"clients"`
	Streams       map[string]models.Stream          `json:"streams"`
	Analytics     map[string]models.AnalyticsRecord `json:"analytics"`
	Billing       map[string]models.BillingRecord   `json:"billing"`
	ConfigEntries map[string]models.ConfigEntry     `json:"configEntries"`
	Operators     map[string]models.Operator        `json:"operators"`
}

// Storage is the JSON-file datastore. All state lives in memory guarded by a
// RWMutex; every mutation persists the full dataset atomically before it is
// published to readers.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error

	backend              icecast.Controller
	streamHost           string
	backendHealth        []icecast.HealthStatus
	backendHealthUpdated time.Time
}

func newDataset() dataset {
	return dataset{
		Clients:       make(map[string]models.Client),
		Streams:       make(map[string]models.Stream),
		Analytics:     make(map[string]models.AnalyticsRecord),
		Billing:       make(map[string]models.BillingRecord),
		ConfigEntries: make(map[string]models.ConfigEntry),
		Operators:     make(map[string]models.Operator),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Clients == nil {
		s.data.Clients = make(map[string]models.Client)
	}
	if s.data.Streams == nil {
		s.data.Streams = make(map[string]models.Stream)
	}
	if s.data.Analytics == nil {
		s.data.Analytics = make(map[string]models.AnalyticsRecord)
	}
	if s.data.Billing == nil {
		s.data.Billing = make(map[string]models.BillingRecord)
	}
	if s.data.ConfigEntries == nil {
		s.data.ConfigEntries = make(map[string]models.ConfigEntry)
	}
	if s.data.Operators == nil {
		s.data.Operators = make(map[string]models.Operator)
	}
}

// NewStorage opens (or creates) the JSON datastore at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath:             path,
		backend:              icecast.NoopController{},
		streamHost:           DefaultStreamHost,
		backendHealth:        []icecast.HealthStatus{{Component: "icecast", Status: "disabled"}},
		backendHealthUpdated: time.Now().UTC(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if store.backend == nil {
		store.backend = icecast.NoopController{}
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()

	return nil
}

func (s *Storage) persist() error {
	return s.persistDataset(s.data)
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := newDataset()

	for id, client := range src.Clients {
		clone.Clients[id] = client
	}
	for id, stream := range src.Streams {
		clone.Streams[id] = stream
	}
	for id, record := range src.Analytics {
		clone.Analytics[id] = record
	}
	for id, record := range src.Billing {
		cloned := record
		if record.PaidDate != nil {
			paid := *record.PaidDate
			cloned.PaidDate = &paid
		}
		clone.Billing[id] = cloned
	}
	for key, entry := range src.ConfigEntries {
		clone.ConfigEntries[key] = entry
	}
	for id, operator := range src.Operators {
		cloned := operator
		if operator.Roles != nil {
			cloned.Roles = append([]string(nil), operator.Roles...)
		}
		clone.Operators[id] = cloned
	}

	return clone
}

// Ping reports datastore availability. The JSON driver is always reachable
// once opened.
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// BackendHealth probes the streaming backend and records the result.
func (s *Storage) BackendHealth(ctx context.Context) icecast.HealthStatus {
	controller := s.backend
	if controller == nil {
		status := icecast.HealthStatus{Component: "icecast", Status: "disabled"}
		s.recordBackendHealth(status)
		return status
	}
	status := controller.HealthCheck(ctx)
	s.recordBackendHealth(status)
	return status
}

func (s *Storage) recordBackendHealth(status icecast.HealthStatus) {
	s.mu.Lock()
	s.backendHealth = []icecast.HealthStatus{status}
	s.backendHealthUpdated = time.Now().UTC()
	s.mu.Unlock()
}

// LastBackendHealth returns the most recently recorded backend health probe.
func (s *Storage) LastBackendHealth() ([]icecast.HealthStatus, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.backendHealth) == 0 {
		return nil, time.Time{}
	}
	snapshot := append([]icecast.HealthStatus(nil), s.backendHealth...)
	return snapshot, s.backendHealthUpdated
}
