// Package telemetry caches the most recent per-stream listener figures so
// dashboards can read live numbers without hitting the streaming backend.
package telemetry

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a live sample is served after its last update.
const DefaultTTL = 5 * time.Minute

// LiveStats is the freshest known state of one stream.
type LiveStats struct {
	StreamID    string    `json:"streamId"`
	Listeners   int       `json:"listeners"`
	Bandwidth   float64   `json:"bandwidth"`
	CurrentSong string    `json:"currentSong"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Cache stores and serves live stream figures. The analytics collector writes
// a sample per tick; API handlers read them back.
type Cache interface {
	StoreLiveStats(ctx context.Context, streamID string, listeners int, bandwidth float64, currentSong string) error
	GetLiveStats(ctx context.Context, streamID string) (LiveStats, bool, error)
	Close() error
}

// MemoryCache keeps live stats in-process. Entries older than the TTL are
// treated as absent.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]LiveStats
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache constructs an in-memory live stats cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		entries: make(map[string]LiveStats),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) StoreLiveStats(ctx context.Context, streamID string, listeners int, bandwidth float64, currentSong string) error {
	c.mu.Lock()
	c.entries[streamID] = LiveStats{
		StreamID:    streamID,
		Listeners:   listeners,
		Bandwidth:   bandwidth,
		CurrentSong: currentSong,
		UpdatedAt:   c.now().UTC(),
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) GetLiveStats(ctx context.Context, streamID string) (LiveStats, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[streamID]
	c.mu.RUnlock()
	if !ok {
		return LiveStats{}, false, nil
	}
	if c.now().Sub(entry.UpdatedAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, streamID)
		c.mu.Unlock()
		return LiveStats{}, false, nil
	}
	return entry, true, nil
}

func (c *MemoryCache) Close() error {
	return nil
}
