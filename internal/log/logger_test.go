package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInfoCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Handler:   slog.NewTextHandler(&buf, nil),
		Component: ComponentWorker,
	})

	logger.Info("tick", "count", 3)

	out := buf.String()
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("missing component tag: %s", out)
	}
	if !strings.Contains(out, "count=3") {
		t.Fatalf("missing attribute: %s", out)
	}
}

// Each record carries the component key exactly once, including on loggers
// derived via WithComponent.
func TestComponentEmittedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Handler:   slog.NewTextHandler(&buf, nil),
		Component: ComponentApp,
	})

	logger.Info("started")
	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Fatalf("component key emitted %d times: %s", n, buf.String())
	}

	buf.Reset()
	logger.WithComponent(ComponentStorage).Info("opened")
	out := buf.String()
	if n := strings.Count(out, "component="); n != 1 {
		t.Fatalf("component key emitted %d times: %s", n, out)
	}
	if !strings.Contains(out, "component=storage") {
		t.Fatalf("missing retagged component: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)})

	storage := logger.WithComponent(ComponentStorage)
	if storage.Component() != ComponentStorage {
		t.Fatalf("component = %s", storage.Component())
	}

	// Retagging twice replaces the tag instead of stacking a second key.
	buf.Reset()
	storage.WithComponent(ComponentAMQP).Info("connected")
	out := buf.String()
	if n := strings.Count(out, "component="); n != 1 {
		t.Fatalf("component key emitted %d times: %s", n, out)
	}
	if !strings.Contains(out, "component=amqp") {
		t.Fatalf("missing retagged component: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
