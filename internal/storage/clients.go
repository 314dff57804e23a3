package storage

import (
	"sort"
	"strings"
	"time"

	"radiowave/internal/models"
)

// CreateClientParams captures the attributes that can be set when creating a
// client account.
type CreateClientParams struct {
	Name           string
	Email          string
	Phone          string
	Company        string
	Status         string
	MaxStreams     int
	MaxListeners   int
	BandwidthLimit int
	BillingPlan    string
	MonthlyFee     float64
}

// ClientUpdate lists the fields that can be changed on an existing client.
// Nil pointers leave the stored value untouched.
type ClientUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	Company        *string
	Status         *string
	MaxStreams     *int
	MaxListeners   *int
	BandwidthLimit *int
	BillingPlan    *string
	MonthlyFee     *float64
}

// ClientWithUsage pairs a client with its current stream count for listings.
type ClientWithUsage struct {
	models.Client
	StreamCount int `json:"streamCount"`
}

// CreateClient registers a new client account. The email address must be
// unique across all clients.
func (s *Storage) CreateClient(params CreateClientParams) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.TrimSpace(strings.ToLower(params.Email))
	if email == "" {
		return models.Client{}, validationf("email is required")
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Client{}, validationf("name is required")
	}
	for _, existing := range s.data.Clients {
		if existing.Email == email {
			return models.Client{}, conflictf("email %s already registered", email)
		}
	}

	status := params.Status
	if strings.TrimSpace(status) == "" {
		status = models.ClientStatusActive
	}
	normalizedStatus, err := models.ValidateClientStatus(status)
	if err != nil {
		return models.Client{}, validationf("%v", err)
	}

	id, err := generateID()
	if err != nil {
		return models.Client{}, err
	}

	maxStreams := params.MaxStreams
	if maxStreams <= 0 {
		maxStreams = 1
	}
	maxListeners := params.MaxListeners
	if maxListeners <= 0 {
		maxListeners = 100
	}
	bandwidthLimit := params.BandwidthLimit
	if bandwidthLimit <= 0 {
		bandwidthLimit = 128
	}

	now := time.Now().UTC()
	client := models.Client{
		ID:             id,
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(params.Phone),
		Company:        strings.TrimSpace(params.Company),
		Status:         normalizedStatus,
		MaxStreams:     maxStreams,
		MaxListeners:   maxListeners,
		BandwidthLimit: bandwidthLimit,
		BillingPlan:    strings.TrimSpace(params.BillingPlan),
		MonthlyFee:     params.MonthlyFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	s.data.Clients[id] = client
	if err := s.persist(); err != nil {
		delete(s.data.Clients, id)
		return models.Client{}, err
	}

	return client, nil
}

// GetClient fetches a single client by identifier.
func (s *Storage) GetClient(id string) (models.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.data.Clients[id]
	return client, ok
}

// ListClients returns all clients with their stream counts, oldest first.
func (s *Storage) ListClients() []ClientWithUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]ClientWithUsage, 0, len(s.data.Clients))
	for _, client := range s.data.Clients {
		count := 0
		for _, stream := range s.data.Streams {
			if stream.ClientID == client.ID {
				count++
			}
		}
		clients = append(clients, ClientWithUsage{Client: client, StreamCount: count})
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].CreatedAt.Before(clients[j].CreatedAt)
	})
	return clients
}

// UpdateClient applies the supplied fields and refreshes updatedAt. Lowering
// maxStreams below the client's current stream count is allowed; the cap is
// only enforced when new streams are created.
func (s *Storage) UpdateClient(id string, update ClientUpdate) (models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	client, ok := updatedData.Clients[id]
	if !ok {
		return models.Client{}, notFoundf("client %s not found", id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Client{}, validationf("name cannot be empty")
		}
		client.Name = name
	}
	if update.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*update.Email))
		if email == "" {
			return models.Client{}, validationf("email cannot be empty")
		}
		for existingID, existing := range updatedData.Clients {
			if existingID == client.ID {
				continue
			}
			if existing.Email == email {
				return models.Client{}, conflictf("email %s already registered", email)
			}
		}
		client.Email = email
	}
	if update.Phone != nil {
		client.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Company != nil {
		client.Company = strings.TrimSpace(*update.Company)
	}
	if update.Status != nil {
		status, err := models.ValidateClientStatus(*update.Status)
		if err != nil {
			return models.Client{}, validationf("%v", err)
		}
		client.Status = status
	}
	if update.MaxStreams != nil {
		if *update.MaxStreams <= 0 {
			return models.Client{}, validationf("maxStreams must be positive")
		}
		client.MaxStreams = *update.MaxStreams
	}
	if update.MaxListeners != nil {
		if *update.MaxListeners <= 0 {
			return models.Client{}, validationf("maxListeners must be positive")
		}
		client.MaxListeners = *update.MaxListeners
	}
	if update.BandwidthLimit != nil {
		if *update.BandwidthLimit <= 0 {
			return models.Client{}, validationf("bandwidthLimit must be positive")
		}
		client.BandwidthLimit = *update.BandwidthLimit
	}
	if update.BillingPlan != nil {
		client.BillingPlan = strings.TrimSpace(*update.BillingPlan)
	}
	if update.MonthlyFee != nil {
		if *update.MonthlyFee < 0 {
			return models.Client{}, validationf("monthlyFee cannot be negative")
		}
		client.MonthlyFee = *update.MonthlyFee
	}

	client.UpdatedAt = time.Now().UTC()
	updatedData.Clients[id] = client
	if err := s.persistDataset(updatedData); err != nil {
		return models.Client{}, err
	}

	s.data = updatedData

	return client, nil
}

// DeleteClient removes the client and cascades to every stream it owns.
// Analytics records for those streams are retained as historical data.
func (s *Storage) DeleteClient(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updatedData := cloneDataset(s.data)

	if _, ok := updatedData.Clients[id]; !ok {
		return notFoundf("client %s not found", id)
	}

	delete(updatedData.Clients, id)
	for streamID, stream := range updatedData.Streams {
		if stream.ClientID == id {
			delete(updatedData.Streams, streamID)
		}
	}

	if err := s.persistDataset(updatedData); err != nil {
		return err
	}

	s.data = updatedData

	return nil
}
