package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestObserveRequestNormalizesIdentifiers(t *testing.T) {
	recorder := New()
	recorder.ObserveRequest("get", "/api/streams/0123456789abcdef0123456789abcdef", 200, 25*time.Millisecond)

	var buf strings.Builder
	recorder.Write(&buf)
	output := buf.String()
	if !strings.Contains(output, `radiowave_http_requests_total{method="GET",path="/api/streams/:id",status="200"} 1`) {
		t.Fatalf("expected normalized request metric, got:\n%s", output)
	}
}

func TestRunningStreamsGaugeNeverNegative(t *testing.T) {
	recorder := New()
	recorder.StreamStopped()
	if got := recorder.RunningStreams(); got != 0 {
		t.Fatalf("expected gauge to stay at 0, got %d", got)
	}

	recorder.StreamStarted()
	recorder.StreamStarted()
	recorder.StreamStopped()
	if got := recorder.RunningStreams(); got != 1 {
		t.Fatalf("expected gauge 1, got %d", got)
	}
}

func TestCollectorCounters(t *testing.T) {
	recorder := New()
	recorder.RecordCollectorTick(3, 1)
	recorder.RecordCollectorTick(0, 0)
	recorder.RecordCollectorFailure()

	ticks, stored, skipped, failures := recorder.CollectorCounts()
	if ticks != 2 || stored != 3 || skipped != 1 || failures != 1 {
		t.Fatalf("unexpected counters: ticks=%d stored=%d skipped=%d failures=%d", ticks, stored, skipped, failures)
	}
}

func TestBackendHealthMapping(t *testing.T) {
	recorder := New()
	recorder.SetBackendHealth("Icecast", "OK")
	recorder.SetBackendHealth("postgres", "degraded")

	var buf strings.Builder
	recorder.Write(&buf)
	output := buf.String()
	if !strings.Contains(output, `radiowave_backend_health{component="icecast",status="ok"} 1.0`) {
		t.Fatalf("expected healthy backend metric, got:\n%s", output)
	}
	if !strings.Contains(output, `radiowave_backend_health{component="postgres",status="degraded"} -1.0`) {
		t.Fatalf("expected degraded backend metric, got:\n%s", output)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	recorder := New()
	recorder.ObserveLogin("success")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), `radiowave_login_attempts_total{outcome="success"} 1`) {
		t.Fatalf("expected login metric in body:\n%s", rr.Body.String())
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	recorder := New()
	handler := HTTPMiddleware(recorder, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var buf strings.Builder
	recorder.Write(&buf)
	if !strings.Contains(buf.String(), `status="418"`) {
		t.Fatalf("expected 418 in metrics output:\n%s", buf.String())
	}
}
