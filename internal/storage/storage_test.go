package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"radiowave/internal/icecast"
)

var errTestPersist = errors.New("persist failed")

func newTestStore(t *testing.T) *Storage {
	return newTestStoreWithController(t, icecast.NoopController{})
}

func newTestStoreWithController(t *testing.T, controller icecast.Controller, extra ...Option) *Storage {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	if controller == nil {
		controller = icecast.NoopController{}
	}
	opts := []Option{WithBackendController(controller)}
	opts = append(opts, extra...)
	store, err := NewStorage(path, opts...)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	return store
}

type controlCall struct {
	mount  string
	action string
}

// fakeController supplies deterministic backend responses for storage tests.
type fakeController struct {
	mu           sync.Mutex
	stats        icecast.StatsSnapshot
	controlOK    bool
	controlCalls []controlCall
	health       icecast.HealthStatus
}

func (f *fakeController) Stats(ctx context.Context) icecast.StatsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make(icecast.StatsSnapshot, len(f.stats))
	for mount, entry := range f.stats {
		snapshot[mount] = entry
	}
	return snapshot
}

func (f *fakeController) Control(ctx context.Context, mountPoint, action string) icecast.ControlResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controlCalls = append(f.controlCalls, controlCall{mount: mountPoint, action: action})
	if f.controlOK {
		return icecast.ControlResult{OK: true}
	}
	return icecast.ControlResult{Detail: "backend unavailable"}
}

func (f *fakeController) HealthCheck(ctx context.Context) icecast.HealthStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.health.Component == "" {
		return icecast.HealthStatus{Component: "icecast", Status: "ok"}
	}
	return f.health
}

func (f *fakeController) calls() []controlCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]controlCall(nil), f.controlCalls...)
}

func TestNewStorageReloadsPersistedState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")

	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage error: %v", err)
	}
	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	reloaded, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	got, ok := reloaded.GetClient(client.ID)
	if !ok {
		t.Fatalf("expected client %s after reload", client.ID)
	}
	if got.Email != "ops@radioone.example" {
		t.Fatalf("unexpected email after reload: %s", got.Email)
	}
}

func TestCreateClientAppliesDefaults(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "OPS@RadioOne.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	if client.Email != "ops@radioone.example" {
		t.Fatalf("expected normalized email, got %s", client.Email)
	}
	if client.Status != "active" {
		t.Fatalf("expected default status active, got %s", client.Status)
	}
	if client.MaxStreams != 1 || client.MaxListeners != 100 || client.BandwidthLimit != 128 {
		t.Fatalf("unexpected defaults: %+v", client)
	}

	if _, err := store.CreateClient(CreateClientParams{Name: "Dup", Email: "ops@radioone.example"}); !IsConflict(err) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestCreateStreamEnforcesLimitsAndPorts(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example", MaxStreams: 1})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	if _, err := store.CreateStream("missing", CreateStreamParams{Name: "Morning", Port: 8000}); !IsNotFound(err) {
		t.Fatalf("expected not found for missing client, got %v", err)
	}

	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning Show", Port: 8000})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if stream.Status != "stopped" {
		t.Fatalf("expected initial status stopped, got %s", stream.Status)
	}
	if stream.MountPoint != "/stream" {
		t.Fatalf("expected default mount /stream, got %s", stream.MountPoint)
	}
	if stream.Bitrate != 128 {
		t.Fatalf("expected default bitrate 128, got %d", stream.Bitrate)
	}
	if stream.StreamURL != "http://radio-server.com:8000/stream" {
		t.Fatalf("unexpected stream url %s", stream.StreamURL)
	}
	if len(stream.AdminPassword) != 8 || len(stream.SourcePassword) != 8 {
		t.Fatalf("expected 8-character secrets, got %q / %q", stream.AdminPassword, stream.SourcePassword)
	}
	if stream.AdminPassword == stream.SourcePassword {
		t.Fatal("expected distinct admin and source secrets")
	}

	if _, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Evening", Port: 8001}); !IsLimitExceeded(err) {
		t.Fatalf("expected limit exceeded, got %v", err)
	}

	other, err := store.CreateClient(CreateClientParams{Name: "Radio Two", Email: "ops@radiotwo.example"})
	if err != nil {
		t.Fatalf("CreateClient other: %v", err)
	}
	if _, err := store.CreateStream(other.ID, CreateStreamParams{Name: "Clash", Port: 8000}); !IsConflict(err) {
		t.Fatalf("expected port conflict across clients, got %v", err)
	}
}

func TestStartStreamRecordsBackendOutcome(t *testing.T) {
	controller := &fakeController{controlOK: true}
	store := newTestStoreWithController(t, controller)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000, MountPoint: "/morning"})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	started, err := store.StartStream(context.Background(), stream.ID)
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	if started.Status != "running" {
		t.Fatalf("expected running after successful start, got %s", started.Status)
	}
	calls := controller.calls()
	if len(calls) != 1 || calls[0].mount != "/morning" || calls[0].action != icecast.ActionEnable {
		t.Fatalf("unexpected control calls: %+v", calls)
	}

	controller.mu.Lock()
	controller.controlOK = false
	controller.mu.Unlock()

	errored, err := store.StartStream(context.Background(), stream.ID)
	if err != nil {
		t.Fatalf("StartStream with failing backend: %v", err)
	}
	if errored.Status != "error" {
		t.Fatalf("expected error status after failed start, got %s", errored.Status)
	}
}

func TestStopStreamAlwaysStops(t *testing.T) {
	controller := &fakeController{controlOK: false}
	store := newTestStoreWithController(t, controller)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	stopped, err := store.StopStream(context.Background(), stream.ID)
	if err != nil {
		t.Fatalf("StopStream: %v", err)
	}
	if stopped.Status != "stopped" {
		t.Fatalf("expected stopped even when backend fails, got %s", stopped.Status)
	}
	calls := controller.calls()
	if len(calls) != 1 || calls[0].action != icecast.ActionKillSource {
		t.Fatalf("unexpected control calls: %+v", calls)
	}
}

func TestDeleteStreamKillsRunningSource(t *testing.T) {
	controller := &fakeController{controlOK: true}
	store := newTestStoreWithController(t, controller)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example", MaxStreams: 2})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	running, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Live", Port: 8000, MountPoint: "/live"})
	if err != nil {
		t.Fatalf("CreateStream live: %v", err)
	}
	idle, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Idle", Port: 8001})
	if err != nil {
		t.Fatalf("CreateStream idle: %v", err)
	}
	if _, err := store.StartStream(context.Background(), running.ID); err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	if err := store.DeleteStream(context.Background(), idle.ID); err != nil {
		t.Fatalf("DeleteStream idle: %v", err)
	}
	if err := store.DeleteStream(context.Background(), running.ID); err != nil {
		t.Fatalf("DeleteStream running: %v", err)
	}

	var kills []controlCall
	for _, call := range controller.calls() {
		if call.action == icecast.ActionKillSource {
			kills = append(kills, call)
		}
	}
	if len(kills) != 1 || kills[0].mount != "/live" {
		t.Fatalf("expected one killsource for the running stream, got %+v", kills)
	}
	if _, ok := store.GetStream(running.ID); ok {
		t.Fatal("expected running stream to be deleted")
	}
}

func TestDeleteClientCascadesStreamsKeepsAnalytics(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example", MaxStreams: 2})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}
	if _, err := store.AppendAnalyticsRecord(stream.ID, 12, 192, "Song A"); err != nil {
		t.Fatalf("AppendAnalyticsRecord: %v", err)
	}

	if err := store.DeleteClient(client.ID); err != nil {
		t.Fatalf("DeleteClient: %v", err)
	}
	if _, ok := store.GetStream(stream.ID); ok {
		t.Fatal("expected stream to be removed with its client")
	}

	store.mu.RLock()
	remaining := len(store.data.Analytics)
	store.mu.RUnlock()
	if remaining != 1 {
		t.Fatalf("expected analytics history to survive, got %d records", remaining)
	}
}

func TestUpdateStreamRefreshesURLOnMountChange(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	mount := "jazz"
	updated, err := store.UpdateStream(stream.ID, StreamUpdate{MountPoint: &mount})
	if err != nil {
		t.Fatalf("UpdateStream: %v", err)
	}
	if updated.MountPoint != "/jazz" {
		t.Fatalf("expected normalized mount /jazz, got %s", updated.MountPoint)
	}
	if updated.StreamURL != "http://radio-server.com:8000/jazz" {
		t.Fatalf("unexpected stream url %s", updated.StreamURL)
	}
	if !updated.UpdatedAt.After(stream.UpdatedAt) && !updated.UpdatedAt.Equal(stream.UpdatedAt) {
		t.Fatal("expected updatedAt to move forward")
	}
}

func TestAnalyticsWindowAndSummary(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	stream, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000})
	if err != nil {
		t.Fatalf("CreateStream: %v", err)
	}

	if _, err := store.AppendAnalyticsRecord(stream.ID, 10, 160, "Song A"); err != nil {
		t.Fatalf("AppendAnalyticsRecord: %v", err)
	}
	if _, err := store.AppendAnalyticsRecord(stream.ID, 30, 480, "Song B"); err != nil {
		t.Fatalf("AppendAnalyticsRecord: %v", err)
	}

	records, err := store.ListStreamAnalytics(stream.ID, 7)
	if err != nil {
		t.Fatalf("ListStreamAnalytics: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	summary, err := store.SummarizeStreamAnalytics(stream.ID, 0)
	if err != nil {
		t.Fatalf("SummarizeStreamAnalytics: %v", err)
	}
	if summary.Records != 2 || summary.PeakListeners != 30 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.AvgListeners != 20 {
		t.Fatalf("expected average 20, got %f", summary.AvgListeners)
	}
	if summary.TotalBandwidth != 640 {
		t.Fatalf("expected total bandwidth 640, got %f", summary.TotalBandwidth)
	}

	if _, err := store.ListStreamAnalytics("missing", 7); !IsNotFound(err) {
		t.Fatalf("expected not found for missing stream, got %v", err)
	}
}

func TestBillingLifecycle(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example", MonthlyFee: 49.99})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	record, err := store.GenerateBillingRecord(client.ID)
	if err != nil {
		t.Fatalf("GenerateBillingRecord: %v", err)
	}
	if record.Amount != 49.99 {
		t.Fatalf("expected amount from monthly fee, got %f", record.Amount)
	}
	if record.Status != "pending" {
		t.Fatalf("expected pending invoice, got %s", record.Status)
	}
	if record.PaidDate != nil {
		t.Fatal("expected no paid date on a pending invoice")
	}

	paid, err := store.UpdateBillingStatus(record.ID, "Paid")
	if err != nil {
		t.Fatalf("UpdateBillingStatus: %v", err)
	}
	if paid.Status != "paid" || paid.PaidDate == nil {
		t.Fatalf("expected paid invoice with paid date, got %+v", paid)
	}

	reverted, err := store.UpdateBillingStatus(record.ID, "overdue")
	if err != nil {
		t.Fatalf("UpdateBillingStatus revert: %v", err)
	}
	if reverted.PaidDate != nil {
		t.Fatal("expected paid date cleared when leaving paid status")
	}

	if _, err := store.UpdateBillingStatus(record.ID, "bogus"); !IsValidation(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
	if _, err := store.GenerateBillingRecord("missing"); !IsNotFound(err) {
		t.Fatalf("expected not found for missing client, got %v", err)
	}
}

func TestOperatorAuthentication(t *testing.T) {
	store := newTestStore(t)

	operator, err := store.CreateOperator(CreateOperatorParams{
		Email:       "Admin@Radiowave.example",
		DisplayName: "Admin",
		Password:    "sup3r-secret",
	})
	if err != nil {
		t.Fatalf("CreateOperator: %v", err)
	}
	if operator.Email != "admin@radiowave.example" {
		t.Fatalf("expected normalized email, got %s", operator.Email)
	}
	if !operator.HasRole("admin") {
		t.Fatalf("expected default admin role, got %v", operator.Roles)
	}

	if _, err := store.AuthenticateOperator("admin@radiowave.example", "sup3r-secret"); err != nil {
		t.Fatalf("AuthenticateOperator: %v", err)
	}
	if _, err := store.AuthenticateOperator("admin@radiowave.example", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := store.AuthenticateOperator("nobody@radiowave.example", "sup3r-secret"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	if _, err := store.CreateOperator(CreateOperatorParams{Email: "admin@radiowave.example", DisplayName: "Dup", Password: "password1"}); !IsConflict(err) {
		t.Fatalf("expected conflict for duplicate operator email, got %v", err)
	}
}

func TestConfigEntriesUpsertAndFilter(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.UpsertConfigEntry("icecast.max_sources", "40", "Streaming", "source cap", "admin"); err != nil {
		t.Fatalf("UpsertConfigEntry: %v", err)
	}
	if _, err := store.UpsertConfigEntry("smtp.host", "mail.example.com", "alerts", "", "admin"); err != nil {
		t.Fatalf("UpsertConfigEntry: %v", err)
	}
	if _, err := store.UpsertConfigEntry("icecast.max_sources", "64", "streaming", "source cap", "admin"); err != nil {
		t.Fatalf("UpsertConfigEntry update: %v", err)
	}

	entry, ok := store.GetConfigEntry("icecast.max_sources")
	if !ok {
		t.Fatal("expected config entry")
	}
	if entry.Value != "64" || entry.Category != "streaming" {
		t.Fatalf("unexpected entry after upsert: %+v", entry)
	}

	streaming := store.ListConfigEntries("streaming")
	if len(streaming) != 1 {
		t.Fatalf("expected 1 streaming entry, got %d", len(streaming))
	}
	all := store.ListConfigEntries("")
	if len(all) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(all))
	}
}

func TestDashboardStatsCountsListenersFromSnapshot(t *testing.T) {
	controller := &fakeController{
		controlOK: true,
		stats: icecast.StatsSnapshot{
			"/morning": {Listeners: 25, Bitrate: 128},
		},
	}
	store := newTestStoreWithController(t, controller)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example", MaxStreams: 2, MonthlyFee: 10})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}
	morning, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000, MountPoint: "/morning"})
	if err != nil {
		t.Fatalf("CreateStream morning: %v", err)
	}
	if _, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Night", Port: 8001, MountPoint: "/night"}); err != nil {
		t.Fatalf("CreateStream night: %v", err)
	}
	if _, err := store.StartStream(context.Background(), morning.ID); err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	record, err := store.GenerateBillingRecord(client.ID)
	if err != nil {
		t.Fatalf("GenerateBillingRecord: %v", err)
	}

	stats := store.GetDashboardStats(context.Background())
	if stats.TotalClients != 1 || stats.ActiveClients != 1 {
		t.Fatalf("unexpected client counts: %+v", stats)
	}
	if stats.TotalStreams != 2 || stats.RunningStreams != 1 {
		t.Fatalf("unexpected stream counts: %+v", stats)
	}
	if stats.TotalListeners != 25 {
		t.Fatalf("expected 25 listeners from snapshot, got %d", stats.TotalListeners)
	}
	if stats.PendingInvoices != 1 {
		t.Fatalf("expected 1 pending invoice, got %d", stats.PendingInvoices)
	}

	if _, err := store.UpdateBillingStatus(record.ID, "paid"); err != nil {
		t.Fatalf("UpdateBillingStatus: %v", err)
	}
	stats = store.GetDashboardStats(context.Background())
	if stats.MonthlyRevenue != 10 {
		t.Fatalf("expected monthly revenue 10, got %f", stats.MonthlyRevenue)
	}

	activity := store.RecentActivity(10)
	if len(activity) != 4 {
		t.Fatalf("expected 4 activity entries, got %d", len(activity))
	}
	for i := 1; i < len(activity); i++ {
		if activity[i].Timestamp.After(activity[i-1].Timestamp) {
			t.Fatal("expected activity sorted newest first")
		}
	}

	truncated := store.RecentActivity(2)
	if len(truncated) != 2 {
		t.Fatalf("expected truncation to 2 entries, got %d", len(truncated))
	}
}

func TestPersistFailureRollsBack(t *testing.T) {
	store := newTestStore(t)

	client, err := store.CreateClient(CreateClientParams{Name: "Radio One", Email: "ops@radioone.example"})
	if err != nil {
		t.Fatalf("CreateClient: %v", err)
	}

	store.persistOverride = func(dataset) error { return errTestPersist }
	if _, err := store.CreateStream(client.ID, CreateStreamParams{Name: "Morning", Port: 8000}); err == nil {
		t.Fatal("expected persist failure to surface")
	}
	store.persistOverride = nil

	if streams := store.ListStreams(""); len(streams) != 0 {
		t.Fatalf("expected no streams after rollback, got %d", len(streams))
	}
}
