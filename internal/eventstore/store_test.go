package eventstore

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rillaudio/livecaptions/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEphemeralStoreIsNoop(t *testing.T) {
	ctx := context.Background()
	cfg := config.EventStoreConfig{RetentionMode: "ephemeral"}

	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Append(ctx, EventCaptureStarted, "mic"); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no persisted events in ephemeral mode, got %d", len(events))
	}
}

func TestAppendAndRecent(t *testing.T) {
	dir := t.TempDir()
	cfg := config.EventStoreConfig{
		Path:          filepath.Join(dir, "events.db"),
		RetentionMode: "session",
		RetentionDays: 7,
	}
	ctx := context.Background()

	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.Append(ctx, EventSourceFallback, "lost node 42"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, EventEngineSwapped, "whisper-cpp"); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventEngineSwapped {
		t.Fatalf("expected most recent first, got %s", events[0].Type)
	}
	if events[1].Detail != "lost node 42" {
		t.Fatalf("unexpected detail: %q", events[1].Detail)
	}
}

func TestPruneRemovesOldEvents(t *testing.T) {
	dir := t.TempDir()
	cfg := config.EventStoreConfig{
		Path:          filepath.Join(dir, "events.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
	}
	ctx := context.Background()

	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	old := time.Now().Add(-48 * time.Hour)
	s.clock = func() time.Time { return old }
	if err := s.Append(ctx, EventConfigReloaded, "stale"); err != nil {
		t.Fatalf("append: %v", err)
	}

	s.clock = time.Now
	if err := s.Append(ctx, EventConfigReloaded, "fresh"); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := s.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event after prune, got %d", len(events))
	}
	if events[0].Detail != "fresh" {
		t.Fatalf("expected surviving event to be 'fresh', got %q", events[0].Detail)
	}
}
