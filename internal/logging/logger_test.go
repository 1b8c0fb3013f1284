package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"info":    slog.LevelInfo,
		"Debug":   slog.LevelDebug,
		"TRACE":   LevelTrace,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantTrace bool
	}{
		{"info", false, false},
		{"debug", true, false},
		{"trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Info("batch submitted", "jobs", 12)
			logger.Debug("run directory", "dir", "/r/global/ncolumns/ncolumns_5/0")
			logger.Log(context.Background(), LevelTrace, "runner script", "job", "ncolumns_Gncolumns_5")

			out := buf.String()
			if !strings.Contains(out, "batch submitted") {
				t.Errorf("info record missing: %q", out)
			}
			if got := strings.Contains(out, "run directory"); got != tt.wantDebug {
				t.Errorf("debug record present = %v, want %v: %q", got, tt.wantDebug, out)
			}
			if got := strings.Contains(out, "runner script"); got != tt.wantTrace {
				t.Errorf("trace record present = %v, want %v: %q", got, tt.wantTrace, out)
			}
			if tt.wantTrace && !strings.Contains(out, "level=TRACE") {
				t.Errorf("trace level not renamed: %q", out)
			}
		})
	}
}

func TestEventLogger_WritesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.jsonl")
	el, err := OpenEventLog(path)
	if err != nil {
		t.Fatalf("OpenEventLog() error = %v", err)
	}
	defer el.Close()

	if err := el.Log(map[string]any{"name": "SP Overlap", "value": 0.87}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if err := el.Log(map[string]any{"name": "SP Uniqueness", "value": 1.0}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read event log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed to parse JSONL entry: %v", err)
	}
	if first["name"] != "SP Overlap" {
		t.Errorf("name = %v, want SP Overlap", first["name"])
	}
	if first["value"] != 0.87 {
		t.Errorf("value = %v, want 0.87", first["value"])
	}
	if _, ok := first["time"]; !ok {
		t.Error("expected 'time' field in event")
	}
}

func TestEventLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	for i := 0; i < 2; i++ {
		el, err := OpenEventLog(path)
		if err != nil {
			t.Fatalf("OpenEventLog() error = %v", err)
		}
		el.Log(map[string]any{"event": "job_submitted", "n": i})
		el.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read event log: %v", err)
	}
	if n := strings.Count(string(data), "\n"); n != 2 {
		t.Errorf("got %d lines, want 2", n)
	}
}

func TestEventLogger_KeepsCallerTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el, err := OpenEventLog(path)
	if err != nil {
		t.Fatalf("OpenEventLog() error = %v", err)
	}
	defer el.Close()

	event := map[string]any{"event": "test", "time": "fixed"}
	el.Log(event)

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"time":"fixed"`) {
		t.Errorf("caller time was replaced: %s", data)
	}
}

func TestEventLogger_NilSafety(t *testing.T) {
	var el *EventLogger
	if err := el.Log(map[string]any{"event": "should_not_panic"}); err != nil {
		t.Errorf("nil Log() error = %v", err)
	}
	if err := el.Close(); err != nil {
		t.Errorf("nil Close() error = %v", err)
	}
}

func TestEventLogger_DoesNotMutateCallerMap(t *testing.T) {
	el, err := OpenEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("OpenEventLog() error = %v", err)
	}
	defer el.Close()

	event := map[string]any{"event": "test"}
	el.Log(event)

	if _, hasTime := event["time"]; hasTime {
		t.Error("Log() should not mutate caller's map, but 'time' was injected")
	}
}

func TestEventLogger_LogAfterClose(t *testing.T) {
	el, err := OpenEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("OpenEventLog() error = %v", err)
	}
	el.Log(map[string]any{"event": "before_close"})
	if err := el.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := el.Log(map[string]any{"event": "after_close"}); err == nil {
		t.Error("Log() after Close() expected error")
	}
	if err := el.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestEventLogger_UnencodableEvent(t *testing.T) {
	el, err := OpenEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("OpenEventLog() error = %v", err)
	}
	defer el.Close()

	if err := el.Log(map[string]any{"bad": make(chan int)}); err == nil {
		t.Error("Log() expected error for unencodable value")
	}
}
