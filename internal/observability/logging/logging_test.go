package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewRespectsLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "warn", Writer: &buf})

	logger.Info("hidden")
	logger.Warn("visible", "key", "value")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Fatalf("expected info suppressed at warn level:\n%s", output)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &entry); err != nil {
		t.Fatalf("expected JSON output by default: %v\n%s", err, output)
	}
	if entry["msg"] != "visible" || entry["key"] != "value" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Writer: &buf})
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text handler output, got %s", buf.String())
	}
}

func TestWithContextAnnotatesIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithStreamID(ctx, "stream-9")
	WithContext(ctx, logger).Info("annotated")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["request_id"] != "req-1" || entry["stream_id"] != "stream-9" {
		t.Fatalf("expected context ids in entry: %v", entry)
	}
}

func TestRequestLoggerEmitsStatusAndDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	handler := RequestLogger(RequestLoggerConfig{Logger: logger})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/clients", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log entry: %v", err)
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Fatalf("expected status 201 in entry: %v", entry)
	}
	if entry["method"] != "POST" || entry["path"] != "/api/clients" {
		t.Fatalf("unexpected request fields: %v", entry)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Fatalf("expected duration_ms field: %v", entry)
	}
}
