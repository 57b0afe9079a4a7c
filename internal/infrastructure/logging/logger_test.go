package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Outputs(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "discard", ""} {
		logger := New(config.LoggingConfig{Level: "info", Format: "json", Output: output}, "1.0.0")
		if logger == nil {
			t.Fatalf("New(output=%q) returned nil", output)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		if result := parseLevel(tt.input); result != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}

func TestLogger_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info", "test")

	logger.Info("test message", "key", "value")

	entry := decodeEntry(t, &buf)
	if entry["service"] != ServiceName {
		t.Errorf("service = %v, want %q", entry["service"], ServiceName)
	}
	if entry["version"] != "test" {
		t.Errorf("version = %v, want test", entry["version"])
	}
	if entry["msg"] != "test message" || entry["key"] != "value" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "TEXT", "info", "test")

	logger.Info("flushed", "points", 3)

	if out := buf.String(); !strings.Contains(out, "msg=flushed") || !strings.Contains(out, "points=3") {
		t.Errorf("text output = %q", out)
	}
}

func TestLogger_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info", "test")

	logger.Info("connecting", "influx_token", "abc123", "mqtt_password", "hunter2", "url", "http://tsdb")

	entry := decodeEntry(t, &buf)
	if entry["influx_token"] != redacted || entry["mqtt_password"] != redacted {
		t.Errorf("secrets not redacted: %v", entry)
	}
	if entry["url"] != "http://tsdb" {
		t.Errorf("url = %v, want http://tsdb", entry["url"])
	}
	if strings.Contains(buf.String(), "hunter2") {
		t.Error("password leaked into output")
	}
}

func TestLogger_DurationsAsStrings(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info", "test")

	logger.Info("flush", "took", 1500*time.Millisecond)

	if entry := decodeEntry(t, &buf); entry["took"] != "1.5s" {
		t.Errorf("took = %v, want 1.5s", entry["took"])
	}
}

func TestLogger_SetLevelAppliesToChildren(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info", "test")
	child := logger.Component("pipeline")

	child.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at info level: %q", buf.String())
	}

	logger.SetLevel("debug")
	child.Debug("shown")

	entry := decodeEntry(t, &buf)
	if entry["msg"] != "shown" || entry["component"] != "pipeline" {
		t.Errorf("entry = %v", entry)
	}
	if !child.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled on child")
	}
}

func TestLogger_With(t *testing.T) {
	logger := Discard()
	child := logger.With("sink", "tsdb")

	if child == logger {
		t.Error("expected child logger to be different from parent")
	}
	if child.level != logger.level {
		t.Error("expected child to share the parent's level")
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}

	logger := Discard()
	logger.Info("dropped")
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Discard() should only enable errors")
	}
}

func TestSetLevel_ZeroLogger(t *testing.T) {
	var l Logger
	l.SetLevel("debug") // must not panic
}
