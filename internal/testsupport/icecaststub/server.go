package icecaststub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"radiowave/internal/icecast"
)

// Options describes how the fake admin interface should behave.
type Options struct {
	// Mounts seeds the stats endpoint. Tests can change it later with SetMounts.
	Mounts icecast.StatsSnapshot

	// FailControls causes the first N control requests to return HTTP 503.
	// Subsequent attempts succeed.
	FailControls int

	// Username and Password are enforced on every request when non-empty.
	Username string
	Password string
}

// Operation represents a recorded admin interaction.
type Operation struct {
	Kind      string
	Action    string
	Mount     string
	Attempt   int
	Status    int
	Timestamp time.Time
}

// AdminServer hosts a single httptest.Server that mimics the Icecast admin
// endpoints the controller talks to.
type AdminServer struct {
	server *httptest.Server
	opts   Options

	mu         sync.Mutex
	mounts     icecast.StatsSnapshot
	operations []Operation
	controlErr int
}

// Start spins up a new admin stub using the provided options.
func Start(opts Options) *AdminServer {
	stub := &AdminServer{opts: opts, mounts: cloneSnapshot(opts.Mounts)}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.handle))
	return stub
}

// Close shuts down the underlying HTTP server.
func (s *AdminServer) Close() {
	if s.server != nil {
		s.server.Close()
	}
}

// BaseURL returns the HTTP base URL of the admin interface.
func (s *AdminServer) BaseURL() string {
	return s.server.URL
}

// SetMounts replaces the mount table served by the stats endpoint.
func (s *AdminServer) SetMounts(mounts icecast.StatsSnapshot) {
	s.mu.Lock()
	s.mounts = cloneSnapshot(mounts)
	s.mu.Unlock()
}

// Operations returns a copy of all recorded interactions in order.
func (s *AdminServer) Operations() []Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Operation, len(s.operations))
	copy(out, s.operations)
	return out
}

// ControlCalls returns the recorded control operations only.
func (s *AdminServer) ControlCalls() []Operation {
	var out []Operation
	for _, op := range s.Operations() {
		if op.Kind == "control" {
			out = append(out, op)
		}
	}
	return out
}

func (s *AdminServer) handle(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		s.record(Operation{Kind: "unauthorized", Status: http.StatusUnauthorized})
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/admin/stats":
		s.handleStats(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/admin/"):
		s.handleControl(w, r)
	default:
		http.Error(w, "unexpected request", http.StatusNotFound)
	}
}

func (s *AdminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	snapshot := cloneSnapshot(s.mounts)
	s.mu.Unlock()

	s.record(Operation{Kind: "stats", Status: http.StatusOK})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(snapshot)
}

func (s *AdminServer) handleControl(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/admin/")
	mount := r.URL.Query().Get("mount")

	s.mu.Lock()
	s.controlErr++
	attempt := s.controlErr
	s.mu.Unlock()

	op := Operation{
		Kind:    "control",
		Action:  action,
		Mount:   mount,
		Attempt: attempt,
		Status:  http.StatusOK,
	}

	if attempt <= s.opts.FailControls {
		op.Status = http.StatusServiceUnavailable
		s.record(op)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}

	s.record(op)
	w.WriteHeader(http.StatusOK)
}

func (s *AdminServer) record(op Operation) {
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}
	s.mu.Lock()
	s.operations = append(s.operations, op)
	s.mu.Unlock()
}

func (s *AdminServer) authorized(r *http.Request) bool {
	user := strings.TrimSpace(s.opts.Username)
	pass := s.opts.Password
	if user == "" && pass == "" {
		return true
	}
	gotUser, gotPass, ok := r.BasicAuth()
	return ok && gotUser == user && gotPass == pass
}

func cloneSnapshot(input icecast.StatsSnapshot) icecast.StatsSnapshot {
	out := make(icecast.StatsSnapshot, len(input))
	for mount, stats := range input {
		out[mount] = stats
	}
	return out
}
