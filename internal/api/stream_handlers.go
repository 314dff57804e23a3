package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"radiowave/internal/models"
	"radiowave/internal/observability/metrics"
	"radiowave/internal/storage"
	"radiowave/internal/telemetry"
)

type createStreamRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Port         int    `json:"port"`
	MountPoint   string `json:"mountPoint"`
	Bitrate      int    `json:"bitrate"`
	Format       string `json:"format"`
	MaxListeners int    `json:"maxListeners"`
}

type updateStreamRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	MountPoint   *string `json:"mountPoint"`
	Bitrate      *int    `json:"bitrate"`
	Format       *string `json:"format"`
	MaxListeners *int    `json:"maxListeners"`
}

type streamDetailResponse struct {
	models.Stream
	Live *telemetry.LiveStats `json:"live,omitempty"`
}

func (h *Handler) streamDetail(r *http.Request, stream models.Stream) streamDetailResponse {
	detail := streamDetailResponse{Stream: stream}
	if h.Live == nil || stream.Status != models.StreamStatusRunning {
		return detail
	}
	if stats, ok, err := h.Live.GetLiveStats(r.Context(), stream.ID); err == nil && ok {
		detail.Live = &stats
	}
	return detail
}

// Streams lists every stream across all clients, optionally filtered by the
// clientId query parameter.
func (h *Handler) Streams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Store.ListStreams(r.URL.Query().Get("clientId")))
}

// StreamByID routes /api/streams/{id} and its start, stop, and analytics
// subresources.
func (h *Handler) StreamByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/streams/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("stream id missing"))
		return
	}
	id := parts[0]

	if len(parts) == 2 {
		switch parts[1] {
		case "start":
			h.startStream(w, r, id)
		case "stop":
			h.stopStream(w, r, id)
		case "analytics":
			h.streamAnalytics(w, r, id)
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown stream resource %s", parts[1]))
		}
		return
	}
	if len(parts) > 2 {
		writeError(w, http.StatusNotFound, fmt.Errorf("invalid stream path"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
			return
		}
		stream, exists := h.Store.GetStream(id)
		if !exists {
			writeError(w, http.StatusNotFound, fmt.Errorf("stream %s not found", id))
			return
		}
		writeJSON(w, http.StatusOK, h.streamDetail(r, stream))
	case http.MethodPut:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		var req updateStreamRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		stream, err := h.Store.UpdateStream(id, storage.StreamUpdate{
			Name:         req.Name,
			Description:  req.Description,
			MountPoint:   req.MountPoint,
			Bitrate:      req.Bitrate,
			Format:       req.Format,
			MaxListeners: req.MaxListeners,
		})
		if err != nil {
			writeStorageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stream)
	case http.MethodDelete:
		if _, ok := h.requireRole(w, r, roleAdmin); !ok {
			return
		}
		if err := h.Store.DeleteStream(r.Context(), id); err != nil {
			writeStorageError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, "GET, PUT, DELETE")
	}
}

// startStream asks the backend to enable the mount and reports the reconciled
// status. Backend refusals surface as status "error" on the stream, not as an
// HTTP failure.
func (h *Handler) startStream(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	if _, ok := h.requireRole(w, r, roleAdmin); !ok {
		return
	}
	stream, err := h.Store.StartStream(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if stream.Status == models.StreamStatusRunning {
		metrics.StreamStarted()
	} else {
		metrics.StreamErrored()
	}
	writeJSON(w, http.StatusOK, stream)
}

// stopStream asks the backend to kill the mount's source. The stream is marked
// stopped regardless of whether the backend acknowledged the kill.
func (h *Handler) stopStream(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, "POST")
		return
	}
	if _, ok := h.requireRole(w, r, roleAdmin); !ok {
		return
	}
	stream, err := h.Store.StopStream(r.Context(), id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	metrics.StreamStopped()
	writeJSON(w, http.StatusOK, stream)
}

// streamAnalytics returns the stored samples and their aggregate summary for
// the requested window. The days parameter defaults to seven.
func (h *Handler) streamAnalytics(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, "GET")
		return
	}
	if _, ok := h.requireAuthenticatedOperator(w, r); !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("days must be a non-negative integer"))
			return
		}
		days = parsed
	}

	records, err := h.Store.ListStreamAnalytics(id, days)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	summary, err := h.Store.SummarizeStreamAnalytics(id, days)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"summary": summary,
	})
}
