package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %s, expected %s", test.level, result, test.expected)
		}
	}
}

func TestLogLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{LogLevel(999), slog.LevelInfo}, // Default for unknown
	}

	for _, test := range tests {
		result := test.level.SlogLevel()
		if result != test.expected {
			t.Errorf("LogLevel(%d).SlogLevel() = %v, expected %v", test.level, result, test.expected)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}

	for _, test := range tests {
		if got := ParseLevel(test.input); got != test.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", test.input, got, test.expected)
		}
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer

	Init(LevelInfo, &buf)

	Info("Test", "hello %s", "world")
	if !strings.Contains(buf.String(), "hello world") {
		t.Errorf("Expected output to contain message, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "subsystem=Test") {
		t.Errorf("Expected output to contain subsystem attribute, got: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	Init(LevelWarn, &buf)

	Debug("Test", "debug message")
	Info("Test", "info message")
	if buf.Len() != 0 {
		t.Errorf("Expected debug/info to be filtered at Warn level, got: %s", buf.String())
	}

	Warn("Test", "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("Expected warn message to pass filter, got: %s", buf.String())
	}
}

func TestErrorAttribute(t *testing.T) {
	var buf bytes.Buffer

	Init(LevelInfo, &buf)

	Error("Test", errors.New("boom"), "operation failed")
	out := buf.String()
	if !strings.Contains(out, "operation failed") {
		t.Errorf("Expected error message in output, got: %s", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("Expected error attribute in output, got: %s", out)
	}
}
