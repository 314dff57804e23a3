package storage

import (
	"context"
	"time"

	"radiowave/internal/icecast"
	"radiowave/internal/models"
)

// Repository exposes the datastore operations required by the API handlers
// and the analytics collector.
type Repository interface {
	Ping(ctx context.Context) error
	BackendHealth(ctx context.Context) icecast.HealthStatus
	LastBackendHealth() ([]icecast.HealthStatus, time.Time)

	CreateOperator(params CreateOperatorParams) (models.Operator, error)
	AuthenticateOperator(email, password string) (models.Operator, error)
	GetOperator(id string) (models.Operator, bool)
	FindOperatorByEmail(email string) (models.Operator, bool)
	ListOperators() []models.Operator
	SetOperatorPassword(id, password string) (models.Operator, error)

	CreateClient(params CreateClientParams) (models.Client, error)
	GetClient(id string) (models.Client, bool)
	ListClients() []ClientWithUsage
	UpdateClient(id string, update ClientUpdate) (models.Client, error)
	DeleteClient(id string) error

	CreateStream(clientID string, params CreateStreamParams) (models.Stream, error)
	GetStream(id string) (models.Stream, bool)
	ListStreams(clientID string) []StreamWithClient
	ListRunningStreams() []models.Stream
	UpdateStream(id string, update StreamUpdate) (models.Stream, error)
	DeleteStream(ctx context.Context, id string) error
	StartStream(ctx context.Context, id string) (models.Stream, error)
	StopStream(ctx context.Context, id string) (models.Stream, error)

	AppendAnalyticsRecord(streamID string, listeners int, bandwidth float64, currentSong string) (models.AnalyticsRecord, error)
	ListStreamAnalytics(streamID string, days int) ([]models.AnalyticsRecord, error)
	SummarizeStreamAnalytics(streamID string, days int) (AnalyticsSummary, error)

	GenerateBillingRecord(clientID string) (models.BillingRecord, error)
	ListBillingRecords(clientID string) []models.BillingRecord
	UpdateBillingStatus(id, status string) (models.BillingRecord, error)

	UpsertConfigEntry(key, value, category, description, updatedBy string) (models.ConfigEntry, error)
	GetConfigEntry(key string) (models.ConfigEntry, bool)
	ListConfigEntries(category string) []models.ConfigEntry

	GetDashboardStats(ctx context.Context) DashboardStats
	RecentActivity(limit int) []ActivityEntry
}

var _ Repository = (*Storage)(nil)
