package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput temporarily points the global logger at a buffer.
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger
	defaultLogger = New(&buf, LevelDebug, FormatJSON)

	f()

	defaultLogger = oldLogger
	return buf.String()
}

func decodeLine(t *testing.T, output string) map[string]any {
	t.Helper()
	line := strings.TrimSpace(output)
	if i := strings.LastIndex(line, "\n"); i >= 0 {
		line = line[i+1:]
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", line, err)
	}
	return m
}

func TestInitLoggerTo(t *testing.T) {
	tests := []struct {
		name   string
		level  Level
		format Format
		want   string
	}{
		{"JSON", LevelInfo, FormatJSON, `"msg":"hello"`},
		{"Text", LevelInfo, FormatText, "msg=hello"},
		{"Invalid level defaults to info", Level(999), FormatJSON, `"level":"INFO"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			InitLoggerTo(&buf, tt.level, tt.format)
			defer InitLogger(LevelInfo, FormatJSON)

			InfoContext(context.Background(), "hello")
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output %q does not contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitLoggerTo(&buf, LevelWarn, FormatJSON)
	defer InitLogger(LevelInfo, FormatJSON)

	ctx := context.Background()
	DebugContext(ctx, "debug message")
	InfoContext(ctx, "info message")
	WarnContext(ctx, "warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message missing")
	}
}

func TestTimestampFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelInfo, FormatJSON)
	logger.Info("tick")

	m := decodeLine(t, buf.String())
	ts, ok := m["time"].(string)
	if !ok {
		t.Fatalf("time field missing: %v", m)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		t.Errorf("time %q is not RFC3339: %v", ts, err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("text"); err != nil || f != FormatText {
		t.Errorf("ParseFormat(text) = %v, %v", f, err)
	}
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestContextIDs(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetBatchID(ctx) != "" {
		t.Error("empty context should carry no IDs")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithBatchID(ctx, "batch-1")
	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q", got)
	}
	if got := GetBatchID(ctx); got != "batch-1" {
		t.Errorf("GetBatchID() = %q", got)
	}

	output := captureLogOutput(func() {
		InfoContext(ctx, "with ids")
	})
	m := decodeLine(t, output)
	if m["request_id"] != "req-1" || m["batch_id"] != "batch-1" {
		t.Errorf("IDs missing from log line: %v", m)
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if len(a) != 36 || a == b {
		t.Errorf("NewRequestID() = %q, %q, want distinct UUIDs", a, b)
	}
}

func TestNewBatchID(t *testing.T) {
	a, b := NewBatchID(), NewBatchID()
	if len(a) != 36 {
		t.Errorf("NewBatchID() = %q, want a UUID", a)
	}
	if a == b {
		t.Error("batch IDs should be unique")
	}
}

func TestWithNilLogger(t *testing.T) {
	output := captureLogOutput(func() {
		With(WithBatchID(context.Background(), "b"), nil).Info("fallback")
	})
	if !strings.Contains(output, `"batch_id":"b"`) {
		t.Errorf("nil logger should fall back to the global logger: %s", output)
	}
}

func TestLoggingFunctions(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-9")
	tests := []struct {
		name    string
		logFunc func(context.Context, string, ...any)
		level   string
	}{
		{"Debug", DebugContext, "DEBUG"},
		{"Info", InfoContext, "INFO"},
		{"Warn", WarnContext, "WARN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureLogOutput(func() {
				tt.logFunc(ctx, "test message", "key", "value")
			})
			m := decodeLine(t, output)
			if m["level"] != tt.level || m["key"] != "value" || m[string(RequestIDKey)] != "req-9" {
				t.Errorf("unexpected log line: %v", m)
			}
		})
	}
}

func TestDomainHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, LevelDebug, FormatJSON)
	ctx := WithBatchID(context.Background(), "b-1")

	t.Run("SourceFetch", func(t *testing.T) {
		buf.Reset()
		SourceFetch(ctx, logger, "KJV", "chapter:genesis:1:KJV", 15*time.Millisecond)
		m := decodeLine(t, buf.String())
		if m["msg"] != "source_fetch" || m["source"] != "KJV" || m["duration_ms"] != float64(15) {
			t.Errorf("unexpected log line: %v", m)
		}
	})

	t.Run("SourceError not found is debug", func(t *testing.T) {
		buf.Reset()
		SourceError(ctx, logger, "KJV", "verse:x", "not_found", errors.New("verse not found"))
		m := decodeLine(t, buf.String())
		if m["level"] != "DEBUG" || m["kind"] != "not_found" {
			t.Errorf("unexpected log line: %v", m)
		}
	})

	t.Run("SourceError unavailable is warn", func(t *testing.T) {
		buf.Reset()
		SourceError(ctx, logger, "ASV", "verse:x", "unavailable", errors.New("status 503"), "status", 503)
		m := decodeLine(t, buf.String())
		if m["level"] != "WARN" || m["status"] != float64(503) || m["batch_id"] != "b-1" {
			t.Errorf("unexpected log line: %v", m)
		}
	})

	t.Run("CacheEvent", func(t *testing.T) {
		buf.Reset()
		CacheEvent(ctx, logger, "invalidate", "verse:genesis:1:1:KJV")
		m := decodeLine(t, buf.String())
		if m["msg"] != "cache_event" || m["event"] != "invalidate" {
			t.Errorf("unexpected log line: %v", m)
		}
	})

	t.Run("BatchResolved", func(t *testing.T) {
		buf.Reset()
		BatchResolved(ctx, logger, "KJV", 3, 2, 3, time.Second)
		m := decodeLine(t, buf.String())
		if m["msg"] != "batch_resolved" || m["groups"] != float64(2) || m["level"] != "INFO" {
			t.Errorf("unexpected log line: %v", m)
		}
	})
}

func TestLevelConstants(t *testing.T) {
	if LevelDebug != 0 || LevelInfo != 1 || LevelWarn != 2 || LevelError != 3 {
		t.Error("level constants changed order")
	}
}

func TestGetLoggerSetsDefault(t *testing.T) {
	InitLogger(LevelInfo, FormatJSON)
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
	if slog.Default() != GetLogger() {
		t.Error("InitLogger should install the slog default")
	}
}
