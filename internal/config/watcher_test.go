package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestWatcherSuppressesUnchangedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live-captions.yaml")

	cfg := Default()
	data, err := yamlMarshalForWatcherTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls int
	w, err := NewWatcher(path, func(old, new Config) { calls++ }, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	// Re-save the identical config (simulating a renderer persisting an
	// unchanged position). The watcher must not invoke the callback.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	if calls != 0 {
		t.Fatalf("expected no reload callbacks for unchanged content, got %d", calls)
	}
}

func TestWatcherFiresOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live-captions.yaml")

	cfg := Default()
	data, err := yamlMarshalForWatcherTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	calls := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(old, new Config) { calls <- struct{}{} }, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	cfg.Appearance.MaxLines = 5
	data, err = yamlMarshalForWatcherTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("expected reload callback after content change")
	}
}

func yamlMarshalForWatcherTest(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
