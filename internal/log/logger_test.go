package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestSetup(t *testing.T) {
	Setup("DEBUG", "json")
	if logger == nil {
		t.Fatal("Logger should not be nil")
	}

	// Setup is once-only; a second call must not replace the logger.
	first := logger
	Setup("ERROR", "text")
	if logger != first {
		t.Fatal("Setup should be idempotent")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer

	l := newLogger(&buf, "INFO", "text")
	l.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text format expected, got %q", buf.String())
	}

	buf.Reset()
	l = newLogger(&buf, "INFO", "json")
	l.Info("hello")
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("json format expected, got %q", buf.String())
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "WARN", "json")
	l.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("INFO should be suppressed at WARN level, got %q", buf.String())
	}
	l.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("WARN should be emitted at WARN level")
	}
}

func TestContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, nil)
	logger = slog.New(h)

	WithComponent("webhook").Info("hello")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["component"] != "webhook" {
		t.Errorf("Expected component 'webhook', got %v", out["component"])
	}
	if out["msg"] != "hello" {
		t.Errorf("Expected msg 'hello', got %v", out["msg"])
	}
}

func TestWithTool(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))

	WithTool("echo_tool").Info("tool msg")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["tool"] != "echo_tool" {
		t.Errorf("Expected tool 'echo_tool', got %v", out["tool"])
	}
}

func TestWithRequest(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))

	WithRequest("req-123").Info("request msg")

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	if out["request_id"] != "req-123" {
		t.Errorf("Expected request_id 'req-123', got %v", out["request_id"])
	}
}
