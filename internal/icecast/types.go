package icecast

import "context"

// Mount control actions understood by the backend's admin interface.
const (
	ActionEnable     = "enable"
	ActionKillSource = "killsource"
)

// MountStats is the live telemetry reported by the backend for one mount.
type MountStats struct {
	Listeners     int    `json:"listeners"`
	PeakListeners int    `json:"peak_listeners"`
	Bitrate       int    `json:"bitrate"`
	CurrentTitle  string `json:"current_title,omitempty"`
}

// StatsSnapshot maps mount points to their stats at a single point in time.
// A mount absent from the snapshot has no data; it does not mean the mount
// is down or has zero listeners.
type StatsSnapshot map[string]MountStats

// ControlResult is the outcome of a mount control call. Failures are encoded
// in OK rather than raised, so callers always branch on the outcome.
type ControlResult struct {
	OK     bool
	Detail string
}

// HealthStatus captures the availability of the streaming backend.
type HealthStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
}

// Controller exposes the streaming backend operations the rest of the system
// needs: stats-by-mount and control-by-mount-and-action. Implementations must
// be safe for concurrent use and must never return raised errors for backend
// failures.
type Controller interface {
	// Stats fetches one snapshot of live telemetry for all mounts. Any
	// transport or protocol failure yields an empty snapshot.
	Stats(ctx context.Context) StatsSnapshot

	// Control issues an admin action against a mount and reports the outcome.
	Control(ctx context.Context, mountPoint, action string) ControlResult

	// HealthCheck probes the backend's admin interface.
	HealthCheck(ctx context.Context) HealthStatus
}

// NoopController is used in tests and in deployments where no streaming
// backend is configured. Stats is always empty and every control call
// succeeds, so stream lifecycle operations behave as if the backend accepted
// them.
type NoopController struct{}

// Stats implements Controller by returning an empty snapshot.
func (NoopController) Stats(ctx context.Context) StatsSnapshot {
	return StatsSnapshot{}
}

// Control implements Controller by reporting success without side effects.
func (NoopController) Control(ctx context.Context, mountPoint, action string) ControlResult {
	return ControlResult{OK: true}
}

// HealthCheck reports that backend control is disabled.
func (NoopController) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Component: "icecast", Status: "disabled"}
}
