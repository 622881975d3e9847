package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"beatmatcher/internal/services"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, levelVar))
}

func TestConsoleHandlerPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestLogger(&buf), "searcher")
	logger.Info("query complete", Int("candidates", 7))

	line := buf.String()
	if !strings.Contains(line, "INFO searcher: query complete") {
		t.Fatalf("component not promoted: %q", line)
	}
	if !strings.Contains(line, "candidates=7") {
		t.Fatalf("attribute missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not repeat as an attribute: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Info("placed", String("path", "/out/Easy (0-4 blocks_s)/map.zip"))

	if !strings.Contains(buf.String(), `path="/out/Easy (0-4 blocks_s)/map.zip"`) {
		t.Fatalf("value with spaces should be quoted: %q", buf.String())
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar))

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info should be filtered: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn should pass: %q", out)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	ctx := services.WithTaskID(context.Background(), 9)
	ctx = services.WithStage(ctx, "downloading")

	WithContext(ctx, logger).Info("progress")

	line := buf.String()
	if !strings.Contains(line, "task_id=9") || !strings.Contains(line, "stage=downloading") {
		t.Fatalf("context fields missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should report disabled")
	}
}
