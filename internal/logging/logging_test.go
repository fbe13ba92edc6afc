package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"INFO", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		got := ParseLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewCoreJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore(zapcore.AddSync(&buf), zapcore.InfoLevel, "json"))

	logger.Info("test message", zap.String("key", "value"))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("expected valid JSON output, got error: %v\noutput: %s", err, buf.String())
	}
	if m["msg"] != "test message" {
		t.Errorf("expected msg 'test message', got %q", m["msg"])
	}
	if m["key"] != "value" {
		t.Errorf("expected key 'value', got %q", m["key"])
	}
}

func TestNewCoreConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore(zapcore.AddSync(&buf), zapcore.InfoLevel, "console"))

	logger.Info("test message", zap.String("key", "value"))

	out := buf.String()
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "test message") {
		t.Errorf("expected console output with level and msg, got: %s", out)
	}
	if !strings.Contains(out, `"key": "value"`) {
		t.Errorf("expected console output containing key, got: %s", out)
	}
}

func TestNewCoreLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := zap.New(newCore(zapcore.AddSync(&buf), zapcore.WarnLevel, "json"))

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got: %s", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("expected warn to pass, got: %s", buf.String())
	}
}
