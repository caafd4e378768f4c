package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":      slog.LevelDebug,
		"dev":        slog.LevelDebug,
		"info":       slog.LevelInfo,
		"warning":    slog.LevelWarn,
		"production": slog.LevelError,
		"bogus":      slog.LevelInfo,
	}
	for v, want := range tests {
		t.Setenv("LOG_LEVEL", v)
		if got := Level(slog.LevelInfo); got != want {
			t.Errorf("LOG_LEVEL=%q: got %s, want %s", v, got, want)
		}
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "room", "abc")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "room=abc") {
		t.Fatalf("missing attribute: %s", out)
	}
}
