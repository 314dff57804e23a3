// Package models defines the entities persisted by the radiowave datastore.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Client lifecycle states.
const (
	ClientStatusActive    = "active"
	ClientStatusSuspended = "suspended"
	ClientStatusInactive  = "inactive"
)

// Stream lifecycle states. Status holds the last reconciled outcome of a
// backend control call, not the operator's desired state.
const (
	StreamStatusStopped = "stopped"
	StreamStatusRunning = "running"
	StreamStatusError   = "error"
)

// Supported audio container formats.
const (
	FormatMP3 = "mp3"
	FormatAAC = "aac"
	FormatOGG = "ogg"
)

// Billing record states.
const (
	BillingStatusPending   = "pending"
	BillingStatusPaid      = "paid"
	BillingStatusOverdue   = "overdue"
	BillingStatusCancelled = "cancelled"
)

// Client is a customer account that owns zero or more streams.
type Client struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	Company        string    `json:"company,omitempty"`
	Status         string    `json:"status"`
	MaxStreams     int       `json:"maxStreams"`
	MaxListeners   int       `json:"maxListeners"`
	BandwidthLimit int       `json:"bandwidthLimit"`
	BillingPlan    string    `json:"billingPlan,omitempty"`
	MonthlyFee     float64   `json:"monthlyFee"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Stream is a single mount on the streaming backend, owned by exactly one
// client. Port is unique across all streams at creation time.
type Stream struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"clientId"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Port           int       `json:"port"`
	MountPoint     string    `json:"mountPoint"`
	Bitrate        int       `json:"bitrate"`
	Format         string    `json:"format"`
	MaxListeners   int       `json:"maxListeners"`
	Status         string    `json:"status"`
	StreamURL      string    `json:"streamUrl,omitempty"`
	AdminPassword  string    `json:"adminPassword"`
	SourcePassword string    `json:"sourcePassword"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// AnalyticsRecord is one immutable telemetry sample for a stream. Records are
// append-only and may outlive the stream they reference.
type AnalyticsRecord struct {
	ID            string    `json:"id"`
	StreamID      string    `json:"streamId"`
	Timestamp     time.Time `json:"timestamp"`
	Listeners     int       `json:"listeners"`
	BandwidthUsed float64   `json:"bandwidthUsed"`
	CurrentSong   string    `json:"currentSong,omitempty"`
}

// BillingRecord is a charge raised against a client for one billing period.
// Status only changes through an explicit update; nothing sweeps records to
// overdue automatically.
type BillingRecord struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"clientId"`
	Amount        float64    `json:"amount"`
	Status        string     `json:"status"`
	BillingPeriod string     `json:"billingPeriod"`
	DueDate       time.Time  `json:"dueDate"`
	PaidDate      *time.Time `json:"paidDate,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// ConfigEntry is a typed key-value server setting partitioned by category.
type ConfigEntry struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	UpdatedBy   string    `json:"updatedBy,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Operator is an admin-panel account.
type Operator struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	Roles        []string  `json:"roles,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasRole reports whether the operator has the provided role, ignoring case.
func (o Operator) HasRole(role string) bool {
	for _, existing := range o.Roles {
		if strings.EqualFold(existing, role) {
			return true
		}
	}
	return false
}

// ValidateClientStatus normalizes and checks a client status value.
func ValidateClientStatus(status string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case ClientStatusActive, ClientStatusSuspended, ClientStatusInactive:
		return normalized, nil
	}
	return "", fmt.Errorf("invalid client status %q", status)
}

// ValidateStreamFormat normalizes and checks a stream audio format.
func ValidateStreamFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case FormatMP3, FormatAAC, FormatOGG:
		return normalized, nil
	}
	return "", fmt.Errorf("invalid stream format %q", format)
}

// ValidateBillingStatus normalizes and checks a billing record status.
func ValidateBillingStatus(status string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(status))
	switch normalized {
	case BillingStatusPending, BillingStatusPaid, BillingStatusOverdue, BillingStatusCancelled:
		return normalized, nil
	}
	return "", fmt.Errorf("invalid billing status %q", status)
}

// NormalizeMountPoint ensures the mount begins with a single leading slash.
func NormalizeMountPoint(mount string) string {
	trimmed := strings.TrimSpace(mount)
	if trimmed == "" {
		return "/stream"
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed
}
