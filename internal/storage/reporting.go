package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"radiowave/internal/models"
)

// DashboardStats is the aggregate snapshot shown on the admin landing page.
type DashboardStats struct {
	TotalClients    int     `json:"totalClients"`
	ActiveClients   int     `json:"activeClients"`
	TotalStreams    int     `json:"totalStreams"`
	RunningStreams  int     `json:"runningStreams"`
	TotalListeners  int     `json:"totalListeners"`
	MonthlyRevenue  float64 `json:"monthlyRevenue"`
	PendingInvoices int     `json:"pendingInvoices"`
	BackendStatus   string  `json:"backendStatus"`
}

// ActivityEntry is one row in the recent-activity feed.
type ActivityEntry struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// GetDashboardStats assembles the aggregate counters. Listener totals come
// from the live backend snapshot so the dashboard reflects what the streaming
// server reports right now rather than the last collector tick.
func (s *Storage) GetDashboardStats(ctx context.Context) DashboardStats {
	snapshot := s.backend.Stats(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := DashboardStats{
		TotalClients: len(s.data.Clients),
		TotalStreams: len(s.data.Streams),
	}
	for _, client := range s.data.Clients {
		if client.Status == models.ClientStatusActive {
			stats.ActiveClients++
		}
	}
	for _, stream := range s.data.Streams {
		if stream.Status != models.StreamStatusRunning {
			continue
		}
		stats.RunningStreams++
		if mount, ok := snapshot[stream.MountPoint]; ok {
			stats.TotalListeners += mount.Listeners
		}
	}

	period := currentBillingPeriod()
	for _, record := range s.data.Billing {
		switch record.Status {
		case models.BillingStatusPending:
			stats.PendingInvoices++
		case models.BillingStatusPaid:
			if record.BillingPeriod == period {
				stats.MonthlyRevenue += record.Amount
			}
		}
	}

	stats.BackendStatus = "unknown"
	if len(s.backendHealth) > 0 && s.backendHealth[0].Status != "" {
		stats.BackendStatus = s.backendHealth[0].Status
	}

	return stats
}

// RecentActivity merges client signups, stream creations and invoices into a
// single feed, newest first, truncated to the requested number of entries.
func (s *Storage) RecentActivity(limit int) []ActivityEntry {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]ActivityEntry, 0, len(s.data.Clients)+len(s.data.Streams)+len(s.data.Billing))
	for _, client := range s.data.Clients {
		entries = append(entries, ActivityEntry{
			Type:      "client",
			Message:   fmt.Sprintf("Client %s registered", client.Name),
			Timestamp: client.CreatedAt,
		})
	}
	for _, stream := range s.data.Streams {
		entries = append(entries, ActivityEntry{
			Type:      "stream",
			Message:   fmt.Sprintf("Stream %s created on port %d", stream.Name, stream.Port),
			Timestamp: stream.CreatedAt,
		})
	}
	for _, record := range s.data.Billing {
		entries = append(entries, ActivityEntry{
			Type:      "billing",
			Message:   fmt.Sprintf("Invoice for %.2f issued (%s)", record.Amount, record.BillingPeriod),
			Timestamp: record.CreatedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func currentBillingPeriod() string {
	now := time.Now().UTC()
	return fmt.Sprintf("%04d-%02d", now.Year(), now.Month())
}
