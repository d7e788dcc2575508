package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/tabwork/hwcore/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFiltersBelowConfiguredLevel(t *testing.T) {
	logger := New(config.LoggingConfig{
		Level:  "error",
		Format: "json",
		Output: "stderr",
	}, "1.0.0")

	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelWarn) {
		t.Error("warn records should be filtered at error level")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("error records should pass at error level")
	}
}

func TestOutputCarriesServiceIdentity(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, nil).WithAttrs([]slog.Attr{
		slog.String("service", "hwcore"),
		slog.String("version", "0.3.0"),
	})
	logger := &Logger{Logger: slog.New(handler)}

	logger.Info("sensor powered on", "device", "camera0")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	for key, want := range map[string]string{
		"service": "hwcore",
		"version": "0.3.0",
		"msg":     "sensor powered on",
		"device":  "camera0",
	} {
		if entry[key] != want {
			t.Errorf("entry[%q] = %v, want %q", key, entry[key], want)
		}
	}
}

func TestWithReturnsIndependentChild(t *testing.T) {
	logger := Default()

	child := logger.With("component", "display")
	if child == nil {
		t.Fatal("With() returned nil")
	}
	if child == logger {
		t.Error("With() returned the parent logger")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}
}
