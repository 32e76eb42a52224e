package audio

import (
	"io"
	"log/slog"
	"testing"
)

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNodeDirectoryAddRemove(t *testing.T) {
	d := NewNodeDirectory(nil, testLog())

	d.Add(Node{ID: 1, DisplayName: "Firefox", Kind: NodeKindAppStream})
	d.Add(Node{ID: 2, DisplayName: "Monitor of Speakers", Kind: NodeKindMonitor})

	if !d.Has(1) || !d.Has(2) {
		t.Fatalf("expected both nodes to be known")
	}

	snap := d.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected snapshot of 2 nodes, got %d", len(snap))
	}

	removed, ok := d.Remove(1)
	if !ok || removed.DisplayName != "Firefox" {
		t.Fatalf("expected to remove node 1, got %v ok=%v", removed, ok)
	}
	if d.Has(1) {
		t.Fatalf("expected node 1 to be gone")
	}
	if !d.Has(2) {
		t.Fatalf("expected node 2 to remain")
	}
}

func TestNodeDirectoryRemoveUnknownIsNoop(t *testing.T) {
	d := NewNodeDirectory(nil, testLog())
	_, ok := d.Remove(99)
	if ok {
		t.Fatalf("expected removing an unknown node to report not-found")
	}
}

func TestNodeDirectorySnapshotDisambiguatesDuplicateNames(t *testing.T) {
	d := NewNodeDirectory(nil, testLog())
	d.Add(Node{ID: 3, DisplayName: "Firefox", Kind: NodeKindAppStream})
	d.Add(Node{ID: 7, DisplayName: "Firefox", Kind: NodeKindAppStream})
	d.Add(Node{ID: 9, DisplayName: "Monitor of Speakers", Kind: NodeKindMonitor})

	byID := make(map[uint32]string)
	for _, n := range d.Snapshot() {
		byID[n.ID] = n.DisplayName
	}

	if byID[3] != "Firefox (id:3)" || byID[7] != "Firefox (id:7)" {
		t.Fatalf("expected duplicate names disambiguated by id, got %v", byID)
	}
	if byID[9] != "Monitor of Speakers" {
		t.Fatalf("expected unique name left unchanged, got %q", byID[9])
	}

	removed, ok := d.Remove(3)
	if !ok || removed.DisplayName != "Firefox" {
		t.Fatalf("expected the stored display name to stay undisambiguated, got %v ok=%v", removed, ok)
	}
}
