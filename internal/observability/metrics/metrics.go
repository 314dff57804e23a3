package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests, stream
// lifecycle events, backend health, collector activity, and login attempts.
// It coordinates concurrent writers via a RWMutex while exposing a
// thread-safe gauge for running stream tracking.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	streamEvents    map[string]uint64
	backendValue    map[string]float64
	backendState    map[string]string
	loginEvents     map[string]uint64
	collectorTicks  uint64
	samplesStored   uint64
	samplesSkipped  uint64
	sampleFailures  uint64
	runningStreams  atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can immediately record metrics without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		streamEvents:    make(map[string]uint64),
		backendValue:    make(map[string]float64),
		backendState:    make(map[string]string),
		loginEvents:     make(map[string]uint64),
	}
}

// Default returns the singleton Recorder shared across helper functions for
// callers that do not need a custom instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest normalizes the request label set and accumulates totals for
// request count and cumulative duration by HTTP method, normalized path, and
// status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// StreamStarted records a successful start and increments the running stream
// gauge.
func (r *Recorder) StreamStarted() {
	r.incrementStreamEvent("start")
	r.runningStreams.Add(1)
}

// StreamStopped records a stop and decrements the running stream gauge,
// guarding against negative counts when concurrent updates race.
func (r *Recorder) StreamStopped() {
	r.incrementStreamEvent("stop")
	r.decrementGauge(&r.runningStreams)
}

// StreamErrored records a start attempt that left the stream in error state.
func (r *Recorder) StreamErrored() {
	r.incrementStreamEvent("error")
}

func (r *Recorder) incrementStreamEvent(event string) {
	normalized := strings.ToLower(strings.TrimSpace(event))
	if normalized == "" {
		normalized = "unknown"
	}
	r.mu.Lock()
	r.streamEvents[normalized]++
	r.mu.Unlock()
}

// ObserveLogin records a login attempt outcome ("success", "failure",
// "throttled").
func (r *Recorder) ObserveLogin(outcome string) {
	normalized := strings.ToLower(strings.TrimSpace(outcome))
	if normalized == "" {
		normalized = "unknown"
	}
	r.mu.Lock()
	r.loginEvents[normalized]++
	r.mu.Unlock()
}

// RecordCollectorTick accumulates per-pass collector figures.
func (r *Recorder) RecordCollectorTick(sampled, skipped int) {
	r.mu.Lock()
	r.collectorTicks++
	if sampled > 0 {
		r.samplesStored += uint64(sampled)
	}
	if skipped > 0 {
		r.samplesSkipped += uint64(skipped)
	}
	r.mu.Unlock()
}

// RecordCollectorFailure counts a sample that could not be persisted.
func (r *Recorder) RecordCollectorFailure() {
	r.mu.Lock()
	r.sampleFailures++
	r.mu.Unlock()
}

// RunningStreams exposes the current gauge of streams marked running.
func (r *Recorder) RunningStreams() int64 {
	return r.runningStreams.Load()
}

// SetRunningStreams overwrites the running stream gauge, used on boot to seed
// the gauge from the datastore.
func (r *Recorder) SetRunningStreams(count int64) {
	if count < 0 {
		count = 0
	}
	r.runningStreams.Store(count)
}

// SetBackendHealth maps backend status strings to numeric health values and
// stores both representations for export.
func (r *Recorder) SetBackendHealth(component, status string) {
	normalizedComponent := strings.ToLower(strings.TrimSpace(component))
	if normalizedComponent == "" {
		normalizedComponent = "unknown"
	}
	normalizedStatus := strings.ToLower(strings.TrimSpace(status))
	value := 0.0
	switch normalizedStatus {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	default:
		value = -1
	}
	r.mu.Lock()
	r.backendValue[normalizedComponent] = value
	r.backendState[normalizedComponent] = normalizedStatus
	r.mu.Unlock()
}

// CollectorCounts returns copies of the collector counters for testing and
// reporting purposes.
func (r *Recorder) CollectorCounts() (ticks, stored, skipped, failures uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collectorTicks, r.samplesStored, r.samplesSkipped, r.sampleFailures
}

// Reset clears all counters and gauges on the recorder. It is intended for
// test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.streamEvents = make(map[string]uint64)
	r.backendValue = make(map[string]float64)
	r.backendState = make(map[string]string)
	r.loginEvents = make(map[string]uint64)
	r.collectorTicks = 0
	r.samplesStored = 0
	r.samplesSkipped = 0
	r.sampleFailures = 0
	r.runningStreams.Store(0)
}

// Handler exposes the Recorder as an http.Handler that writes Prometheus text
// exposition data with the appropriate content type.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the Recorder's metrics in Prometheus text format, sorting
// label sets to provide stable output for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()
	streamEvents := sortedKeys(r.streamEvents)
	backendComponents := sortedKeysFloat(r.backendValue)
	loginEvents := sortedKeys(r.loginEvents)

	fmt.Fprintln(w, "# HELP radiowave_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE radiowave_http_requests_total counter")
	for _, label := range requestLabels {
		count := r.requestCount[label]
		fmt.Fprintf(w, "radiowave_http_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n", label.method, label.path, label.status, count)
	}

	fmt.Fprintln(w, "# HELP radiowave_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE radiowave_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		duration := r.requestDuration[label].Seconds()
		fmt.Fprintf(w, "radiowave_http_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %f\n", label.method, label.path, label.status, duration)
	}

	fmt.Fprintln(w, "# HELP radiowave_stream_events_total Stream lifecycle events by type")
	fmt.Fprintln(w, "# TYPE radiowave_stream_events_total counter")
	for _, event := range streamEvents {
		fmt.Fprintf(w, "radiowave_stream_events_total{event=\"%s\"} %d\n", event, r.streamEvents[event])
	}

	fmt.Fprintln(w, "# HELP radiowave_running_streams Current number of streams marked as running")
	fmt.Fprintln(w, "# TYPE radiowave_running_streams gauge")
	fmt.Fprintf(w, "radiowave_running_streams %d\n", r.runningStreams.Load())

	fmt.Fprintln(w, "# HELP radiowave_backend_health Health reported by the streaming backend (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE radiowave_backend_health gauge")
	for _, component := range backendComponents {
		fmt.Fprintf(w, "radiowave_backend_health{component=\"%s\",status=\"%s\"} %f\n", component, r.backendState[component], r.backendValue[component])
	}

	fmt.Fprintln(w, "# HELP radiowave_collector_ticks_total Completed analytics collection passes")
	fmt.Fprintln(w, "# TYPE radiowave_collector_ticks_total counter")
	fmt.Fprintf(w, "radiowave_collector_ticks_total %d\n", r.collectorTicks)

	fmt.Fprintln(w, "# HELP radiowave_collector_samples_total Analytics samples stored by the collector")
	fmt.Fprintln(w, "# TYPE radiowave_collector_samples_total counter")
	fmt.Fprintf(w, "radiowave_collector_samples_total %d\n", r.samplesStored)

	fmt.Fprintln(w, "# HELP radiowave_collector_skipped_total Running streams skipped because their mount was absent from the snapshot")
	fmt.Fprintln(w, "# TYPE radiowave_collector_skipped_total counter")
	fmt.Fprintf(w, "radiowave_collector_skipped_total %d\n", r.samplesSkipped)

	fmt.Fprintln(w, "# HELP radiowave_collector_failures_total Analytics samples that could not be persisted")
	fmt.Fprintln(w, "# TYPE radiowave_collector_failures_total counter")
	fmt.Fprintf(w, "radiowave_collector_failures_total %d\n", r.sampleFailures)

	fmt.Fprintln(w, "# HELP radiowave_login_attempts_total Login attempts by outcome")
	fmt.Fprintln(w, "# TYPE radiowave_login_attempts_total counter")
	for _, event := range loginEvents {
		fmt.Fprintf(w, "radiowave_login_attempts_total{outcome=\"%s\"} %d\n", event, r.loginEvents[event])
	}
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysFloat(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizePath collapses path segments that look like generated identifiers
// so metric cardinality stays bounded.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if looksLikeIdentifier(segment) {
			segments[i] = ":id"
		}
	}
	normalized := strings.Join(segments, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) < 16 {
		return false
	}
	for _, r := range segment {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// ObserveRequest records a request on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// StreamStarted records a stream start on the default recorder.
func StreamStarted() {
	defaultRecorder.StreamStarted()
}

// StreamStopped records a stream stop on the default recorder.
func StreamStopped() {
	defaultRecorder.StreamStopped()
}

// StreamErrored records a failed stream start on the default recorder.
func StreamErrored() {
	defaultRecorder.StreamErrored()
}

// ObserveLogin records a login attempt outcome on the default recorder.
func ObserveLogin(outcome string) {
	defaultRecorder.ObserveLogin(outcome)
}

// SetBackendHealth records backend health on the default recorder.
func SetBackendHealth(component, status string) {
	defaultRecorder.SetBackendHealth(component, status)
}

// Handler exposes the default recorder over HTTP.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
