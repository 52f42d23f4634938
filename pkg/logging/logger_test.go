package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetup_JSONStatusLine(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: "info", Output: &buf})

	logger.Info().
		Str("item", "#000123").
		Str("endpoint", "/repos/rust-lang/rust/issues/123").
		Msg("main=OK (issue) comments=OK (17)")

	var line struct {
		Level    string `json:"level"`
		Item     string `json:"item"`
		Endpoint string `json:"endpoint"`
		Message  string `json:"message"`
		Time     string `json:"time"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not a JSON line: %v\n%s", err, buf.String())
	}

	if line.Level != "info" {
		t.Errorf("level = %q, want info", line.Level)
	}
	if line.Item != "#000123" {
		t.Errorf("item = %q, want #000123", line.Item)
	}
	if line.Endpoint != "/repos/rust-lang/rust/issues/123" {
		t.Errorf("endpoint = %q", line.Endpoint)
	}
	if line.Message != "main=OK (issue) comments=OK (17)" {
		t.Errorf("message = %q", line.Message)
	}
	if line.Time == "" {
		t.Error("missing timestamp")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		debugKept bool
		warnKept  bool
	}{
		{"debug keeps everything", "debug", true, true},
		{"info drops debug", "info", false, true},
		{"error drops warnings", "error", false, false},
		{"unknown level falls back to info", "verbose", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Setup(Config{Level: tt.level, Output: &buf})

			logger.Debug().Str("item", "#000005").Msg("marker decision")
			logger.Warn().Int("attempt", 2).Msg("Request attempt failed")

			out := buf.String()
			if got := strings.Contains(out, "marker decision"); got != tt.debugKept {
				t.Errorf("debug line kept = %v, want %v", got, tt.debugKept)
			}
			if got := strings.Contains(out, "Request attempt failed"); got != tt.warnKept {
				t.Errorf("warn line kept = %v, want %v", got, tt.warnKept)
			}
		})
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Config{Level: "info", Pretty: true, Output: &buf})

	logger.Info().Str("item", "#000042").Msg("skip (past cutoff)")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("pretty output looks like JSON: %q", out)
	}
	if !strings.Contains(out, "skip (past cutoff)") {
		t.Errorf("message missing from console output: %q", out)
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: "info", Output: &buf})

	logger := NewLogger("driver")
	logger.Info().Str("item", "#000007").Msg("404")

	var line struct {
		Component string `json:"component"`
		Item      string `json:"item"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not a JSON line: %v\n%s", err, buf.String())
	}
	if line.Component != "driver" {
		t.Errorf("component = %q, want driver", line.Component)
	}
	if line.Item != "#000007" {
		t.Errorf("item = %q, want #000007", line.Item)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"trace", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.expected)
		}
	}
}
