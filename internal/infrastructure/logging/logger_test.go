package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/nerrad567/iotdemo-core/internal/infrastructure/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_Outputs(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", ""} {
		if New(config.LoggingConfig{Level: "info", Output: out}, "1.0.0") == nil {
			t.Errorf("New(output=%q) = nil", out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "info"}, "test")
	logger.Info("result published", "board", "esp32dev")

	entry := decode(t, &buf)
	want := map[string]any{
		"msg":     "result published",
		"service": "iotdemo",
		"version": "test",
		"board":   "esp32dev",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "debug", Format: "text"}, "1.2.3")
	logger.Debug("link lost", "board", "esp8266")

	output := buf.String()
	for _, want := range []string{"link lost", "board=esp8266", "service=iotdemo", "version=1.2.3"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q missing %q", output, want)
		}
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer

	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "json"}, "dev")
	logger.Info("suppressed")

	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered at warn level, got %q", buf.String())
	}
}

func TestRedaction(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"secret", "hunter2", redacted},
		{"mqtt_password", "pw", redacted},
		{"InfluxToken", "abc", redacted},
		{"password", "", ""},
		{"board", "esp32dev", "esp32dev"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewWithWriter(&buf, config.LoggingConfig{Level: "info"}, "dev")
			logger.Info("connecting", tt.key, tt.value)

			if got := decode(t, &buf)[tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, config.LoggingConfig{Level: "info"}, "dev")

	child := base.Component("supervisor")
	if child == base {
		t.Fatal("Component returned the parent logger")
	}
	child.Info("link connected")

	if got := decode(t, &buf)["component"]; got != "supervisor" {
		t.Errorf("component = %v, want supervisor", got)
	}
}
