package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"radiowave/internal/icecast"
	"radiowave/internal/models"
)

// CreateStreamParams captures the attributes for a new stream. ClientID comes
// from the route, not the payload.
type CreateStreamParams struct {
	Name         string
	Description  string
	Port         int
	MountPoint   string
	Bitrate      int
	Format       string
	MaxListeners int
}

// StreamUpdate lists the fields that can be changed on an existing stream.
// Port uniqueness and client stream caps are not re-validated on update.
type StreamUpdate struct {
	Name         *string
	Description  *string
	MountPoint   *string
	Bitrate      *int
	Format       *string
	MaxListeners *int
}

// StreamWithClient decorates a stream with the owning client's name for
// listings.
type StreamWithClient struct {
	models.Stream
	ClientName string `json:"clientName"`
}

// CreateStream registers a stream for the client. It fails with NotFound when
// the client is missing, LimitExceeded when the client is at its stream cap,
// and Conflict when the port is already taken by any stream system-wide.
func (s *Storage) CreateStream(clientID string, params CreateStreamParams) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, ok := s.data.Clients[clientID]
	if !ok {
		return models.Stream{}, notFoundf("client %s not found", clientID)
	}

	owned := 0
	for _, stream := range s.data.Streams {
		if stream.ClientID == clientID {
			owned++
		}
	}
	if owned >= client.MaxStreams {
		return models.Stream{}, limitExceededf("client %s has reached its stream limit of %d", clientID, client.MaxStreams)
	}

	if params.Port <= 0 || params.Port > 65535 {
		return models.Stream{}, validationf("port %d is out of range", params.Port)
	}
	for _, stream := range s.data.Streams {
		if stream.Port == params.Port {
			return models.Stream{}, conflictf("port %d already in use", params.Port)
		}
	}

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Stream{}, validationf("name is required")
	}

	format := params.Format
	if strings.TrimSpace(format) == "" {
		format = models.FormatMP3
	}
	normalizedFormat, err := models.ValidateStreamFormat(format)
	if err != nil {
		return models.Stream{}, validationf("%v", err)
	}

	bitrate := params.Bitrate
	if bitrate <= 0 {
		bitrate = 128
	}
	maxListeners := params.MaxListeners
	if maxListeners <= 0 {
		maxListeners = client.MaxListeners
	}

	id, err := generateID()
	if err != nil {
		return models.Stream{}, err
	}
	adminPassword, err := generateStreamSecret()
	if err != nil {
		return models.Stream{}, err
	}
	sourcePassword, err := generateStreamSecret()
	if err != nil {
		return models.Stream{}, err
	}

	mount := models.NormalizeMountPoint(params.MountPoint)
	now := time.Now().UTC()
	stream := models.Stream{
		ID:             id,
		ClientID:       clientID,
		Name:           name,
		Description:    strings.TrimSpace(params.Description),
		Port:           params.Port,
		MountPoint:     mount,
		Bitrate:        bitrate,
		Format:         normalizedFormat,
		MaxListeners:   maxListeners,
		Status:         models.StreamStatusStopped,
		StreamURL:      fmt.Sprintf("http://%s:%d%s", s.streamHost, params.Port, mount),
		AdminPassword:  adminPassword,
		SourcePassword: sourcePassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.data.Streams[id] = stream
	if err := s.persist(); err != nil {
		delete(s.data.Streams, id)
		return models.Stream{}, err
	}

	return stream, nil
}

// GetStream fetches a single stream by identifier.
func (s *Storage) GetStream(id string) (models.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream, ok := s.data.Streams[id]
	return stream, ok
}

// ListStreams returns streams decorated with client names, oldest first.
// When clientID is non-empty only that client's streams are returned.
func (s *Storage) ListStreams(clientID string) []StreamWithClient {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]StreamWithClient, 0, len(s.data.Streams))
	for _, stream := range s.data.Streams {
		if clientID != "" && stream.ClientID != clientID {
			continue
		}
		clientName := "Unknown"
		if client, ok := s.data.Clients[stream.ClientID]; ok {
			clientName = client.Name
		}
		streams = append(streams, StreamWithClient{Stream: stream, ClientName: clientName})
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams
}

// ListRunningStreams returns every stream whose last reconciled status is
// running. The analytics collector fans out over this set each tick.
func (s *Storage) ListRunningStreams() []models.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]models.Stream, 0)
	for _, stream := range s.data.Streams {
		if stream.Status == models.StreamStatusRunning {
			streams = append(streams, stream)
		}
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams
}

// UpdateStream applies the supplied fields and refreshes updatedAt. Port is
// immutable after creation; neither port uniqueness nor the owning client's
// stream cap are re-validated here.
func (s *Storage) UpdateStream(id string, update StreamUpdate) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	stream, ok := updatedData.Streams[id]
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Stream{}, validationf("name cannot be empty")
		}
		stream.Name = name
	}
	if update.Description != nil {
		stream.Description = strings.TrimSpace(*update.Description)
	}
	if update.MountPoint != nil {
		stream.MountPoint = models.NormalizeMountPoint(*update.MountPoint)
		stream.StreamURL = fmt.Sprintf("http://%s:%d%s", s.streamHost, stream.Port, stream.MountPoint)
	}
	if update.Bitrate != nil {
		if *update.Bitrate <= 0 {
			return models.Stream{}, validationf("bitrate must be positive")
		}
		stream.Bitrate = *update.Bitrate
	}
	if update.Format != nil {
		format, err := models.ValidateStreamFormat(*update.Format)
		if err != nil {
			return models.Stream{}, validationf("%v", err)
		}
		stream.Format = format
	}
	if update.MaxListeners != nil {
		if *update.MaxListeners <= 0 {
			return models.Stream{}, validationf("maxListeners must be positive")
		}
		stream.MaxListeners = *update.MaxListeners
	}

	stream.UpdatedAt = time.Now().UTC()
	updatedData.Streams[id] = stream
	if err := s.persistDataset(updatedData); err != nil {
		return models.Stream{}, err
	}

	s.data = updatedData

	return stream, nil
}

// DeleteStream removes the stream. A running stream gets a best-effort
// killsource call first; deletion proceeds whether or not the backend
// accepted it.
func (s *Storage) DeleteStream(ctx context.Context, id string) error {
	s.mu.Lock()
	stream, ok := s.data.Streams[id]
	if !ok {
		s.mu.Unlock()
		return notFoundf("stream %s not found", id)
	}
	running := stream.Status == models.StreamStatusRunning
	mount := stream.MountPoint
	s.mu.Unlock()

	if running {
		_ = s.backend.Control(ctx, mount, icecast.ActionKillSource)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	if _, ok := updatedData.Streams[id]; !ok {
		return notFoundf("stream %s not found", id)
	}
	delete(updatedData.Streams, id)

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}

// StartStream asks the backend to enable the stream's mount and records the
// outcome. A successful control call moves the stream to running; a failed
// one moves it to error. The backend failure itself is never surfaced as an
// error, only NotFound and persistence failures are.
func (s *Storage) StartStream(ctx context.Context, id string) (models.Stream, error) {
	s.mu.RLock()
	stream, ok := s.data.Streams[id]
	s.mu.RUnlock()
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	result := s.backend.Control(ctx, stream.MountPoint, icecast.ActionEnable)
	status := models.StreamStatusRunning
	if !result.OK {
		status = models.StreamStatusError
	}

	return s.setStreamStatus(id, status)
}

// StopStream asks the backend to kill the stream's source and always records
// status stopped, regardless of the control call's outcome. The operator's
// stop intent wins over a flaky backend.
func (s *Storage) StopStream(ctx context.Context, id string) (models.Stream, error) {
	s.mu.RLock()
	stream, ok := s.data.Streams[id]
	s.mu.RUnlock()
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	_ = s.backend.Control(ctx, stream.MountPoint, icecast.ActionKillSource)

	return s.setStreamStatus(id, models.StreamStatusStopped)
}

func (s *Storage) setStreamStatus(id, status string) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)
	stream, ok := updatedData.Streams[id]
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	stream.Status = status
	stream.UpdatedAt = time.Now().UTC()
	updatedData.Streams[id] = stream

	if err := s.persistDataset(updatedData); err != nil {
		return models.Stream{}, err
	}

	s.data = updatedData

	return stream, nil
}
