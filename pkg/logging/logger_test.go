package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}
	if cfg.Pretty {
		t.Error("Expected default pretty to be false")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelInfo, Output: buf})

	logger := NewLogger("release-session")
	logger.Info().Msg("cycle complete")

	output := buf.String()
	if !strings.Contains(output, "release-session") {
		t.Errorf("Expected output to contain component name, got %q", output)
	}
	if !strings.Contains(output, "cycle complete") {
		t.Errorf("Expected output to contain message, got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(Config{Level: LevelWarn, Output: buf})

	logger := NewLogger("fetch-runner")

	logger.Debug().Msg("cursor advanced")
	logger.Info().Msg("cycle complete")
	logger.Warn().Msg("malformed pagination metadata")
	logger.Error().Msg("page fetch failed")

	output := buf.String()

	if strings.Contains(output, "cursor advanced") || strings.Contains(output, "cycle complete") {
		t.Error("Messages below Warn level should be filtered out")
	}
	if !strings.Contains(output, "malformed pagination metadata") {
		t.Error("Warn message should be included at Warn level")
	}
	if !strings.Contains(output, "page fetch failed") {
		t.Error("Error message should be included at Warn level")
	}
}
