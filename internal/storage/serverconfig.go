package storage

import (
	"sort"
	"strings"
	"time"

	"radiowave/internal/models"
)

// UpsertConfigEntry creates or replaces a configuration entry keyed by name.
func (s *Storage) UpsertConfigEntry(key, value, category, description, updatedBy string) (models.ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.ConfigEntry{}, validationf("config key is required")
	}
	if strings.TrimSpace(category) == "" {
		category = "general"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := models.ConfigEntry{
		Key:         key,
		Value:       value,
		Category:    strings.ToLower(strings.TrimSpace(category)),
		Description: strings.TrimSpace(description),
		UpdatedBy:   updatedBy,
		UpdatedAt:   time.Now().UTC(),
	}

	previous, existed := s.data.ConfigEntries[key]
	s.data.ConfigEntries[key] = entry
	if err := s.persist(); err != nil {
		if existed {
			s.data.ConfigEntries[key] = previous
		} else {
			delete(s.data.ConfigEntries, key)
		}
		return models.ConfigEntry{}, err
	}

	return entry, nil
}

// GetConfigEntry fetches a single configuration entry.
func (s *Storage) GetConfigEntry(key string) (models.ConfigEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data.ConfigEntries[strings.TrimSpace(key)]
	return entry, ok
}

// ListConfigEntries returns entries sorted by key, optionally filtered by
// category.
func (s *Storage) ListConfigEntries(category string) []models.ConfigEntry {
	category = strings.ToLower(strings.TrimSpace(category))

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.ConfigEntry, 0, len(s.data.ConfigEntries))
	for _, entry := range s.data.ConfigEntries {
		if category != "" && entry.Category != category {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries
}
