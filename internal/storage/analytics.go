package storage

import (
	"sort"
	"time"

	"radiowave/internal/models"
)

// AnalyticsSummary aggregates a stream's records over a query window.
type AnalyticsSummary struct {
	StreamID       string  `json:"streamId"`
	Records        int     `json:"records"`
	AvgListeners   float64 `json:"avgListeners"`
	PeakListeners  int     `json:"peakListeners"`
	TotalBandwidth float64 `json:"totalBandwidth"`
}

// AppendAnalyticsRecord stores one listener sample. Records are append-only;
// nothing updates or deletes them after the fact.
func (s *Storage) AppendAnalyticsRecord(streamID string, listeners int, bandwidth float64, currentSong string) (models.AnalyticsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Streams[streamID]; !ok {
		return models.AnalyticsRecord{}, notFoundf("stream %s not found", streamID)
	}

	id, err := generateID()
	if err != nil {
		return models.AnalyticsRecord{}, err
	}

	record := models.AnalyticsRecord{
		ID:            id,
		StreamID:      streamID,
		Timestamp:     time.Now().UTC(),
		Listeners:     listeners,
		BandwidthUsed: bandwidth,
		CurrentSong:   currentSong,
	}

	s.data.Analytics[id] = record
	if err := s.persist(); err != nil {
		delete(s.data.Analytics, id)
		return models.AnalyticsRecord{}, err
	}

	return record, nil
}

// ListStreamAnalytics returns the stream's records from the last `days` days,
// newest first. A non-positive window defaults to seven days.
func (s *Storage) ListStreamAnalytics(streamID string, days int) ([]models.AnalyticsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.data.Streams[streamID]; !ok {
		return nil, notFoundf("stream %s not found", streamID)
	}

	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	records := make([]models.AnalyticsRecord, 0)
	for _, record := range s.data.Analytics {
		if record.StreamID != streamID {
			continue
		}
		if record.Timestamp.Before(cutoff) {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// SummarizeStreamAnalytics folds the windowed records into one summary row.
func (s *Storage) SummarizeStreamAnalytics(streamID string, days int) (AnalyticsSummary, error) {
	records, err := s.ListStreamAnalytics(streamID, days)
	if err != nil {
		return AnalyticsSummary{}, err
	}

	summary := AnalyticsSummary{StreamID: streamID, Records: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	totalListeners := 0
	for _, record := range records {
		totalListeners += record.Listeners
		if record.Listeners > summary.PeakListeners {
			summary.PeakListeners = record.Listeners
		}
		summary.TotalBandwidth += record.BandwidthUsed
	}
	summary.AvgListeners = float64(totalListeners) / float64(len(records))
	return summary, nil
}
