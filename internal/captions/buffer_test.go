package captions

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSingleLineFill(t *testing.T) {
	b := New(3, 20, 8)
	b.Push(" Hello")
	b.Push(" world")
	b.Push(" this")

	if got := b.DisplayText(); got != "Hello world this" {
		t.Fatalf("display_text = %q, want %q", got, "Hello world this")
	}
	if b.LineCount() != 1 {
		t.Fatalf("expected 1 line, got %d", b.LineCount())
	}
}

func TestOverflowToLineTwo(t *testing.T) {
	b := New(3, 20, 8)
	for _, frag := range []string{" Hello", " world", " this", " is", " a", " caption"} {
		b.Push(frag)
	}

	if b.LineCount() != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", b.LineCount(), b.DisplayText())
	}
	lines := b.lines
	if !contains(lines[1].Text, "caption") {
		t.Fatalf("expected line 2 to contain unsplit 'caption', got %q", lines[1].Text)
	}
}

func TestShiftOnFull(t *testing.T) {
	// Narrow lines force exactly one word per line.
	b := New(3, 4, 8)
	b.Push(" one")
	b.Push(" two")
	b.Push(" six")

	if b.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d", b.LineCount())
	}

	b.Push(" ten")

	if b.LineCount() != 3 {
		t.Fatalf("expected line count to remain 3 after overflow push, got %d", b.LineCount())
	}
	if contains(b.DisplayText(), "one") {
		t.Fatalf("expected oldest line to be evicted, still found 'one' in %q", b.DisplayText())
	}
	bottom := b.lines[len(b.lines)-1]
	if bottom.Text != "ten" {
		t.Fatalf("expected bottom line to be the newest word, got %q", bottom.Text)
	}
}

func TestContinuationJoin(t *testing.T) {
	b := New(3, 20, 8)
	b.Push(" Hel")
	b.Push("lo")

	if got := b.DisplayText(); got != "Hello" {
		t.Fatalf("display_text = %q, want %q", got, "Hello")
	}
	if b.LineCount() != 1 {
		t.Fatalf("expected 1 line, got %d", b.LineCount())
	}
}

func TestContinuationOverflowMovesPartial(t *testing.T) {
	b := New(3, 24, 8)
	for _, frag := range []string{" aaaa", " bbbb", " cccc", " dddd", " eeee"} {
		b.Push(frag)
	}
	if got := b.DisplayText(); got != "aaaa bbbb cccc dddd eeee" {
		t.Fatalf("setup display_text = %q", got)
	}

	b.Push("ffff")

	if b.LineCount() != 2 {
		t.Fatalf("expected 2 lines after overflow continuation, got %d: %q", b.LineCount(), b.DisplayText())
	}
	if b.lines[0].Text != "aaaa bbbb cccc dddd" {
		t.Fatalf("expected line 1 to have lost trailing word, got %q", b.lines[0].Text)
	}
	if b.lines[1].Text != "eeeeffff" {
		t.Fatalf("expected line 2 to be 'eeeeffff', got %q", b.lines[1].Text)
	}
}

func TestOverlapDedup(t *testing.T) {
	b := New(3, 40, 8)
	b.Push(" the")
	b.Push(" quick")

	if got := b.DisplayText(); got != "the quick" {
		t.Fatalf("setup display_text = %q", got)
	}

	b.Push(" quick brown")

	if got := b.DisplayText(); got != "the quick brown" {
		t.Fatalf("display_text = %q, want %q", got, "the quick brown")
	}
}

func TestExpiryDrain(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	// Narrow width forces one word per line, giving 3 distinct lines.
	b := New(3, 4, 8, WithClock(func() time.Time { return clock }))

	b.Push(" one")
	b.Push(" two")
	b.Push(" six")

	if b.LineCount() != 3 {
		t.Fatalf("expected 3 lines, got %d: %v", b.LineCount(), b.lines)
	}

	clock = base.Add(9 * time.Second)

	for i := 0; i < 3; i++ {
		if !b.ExpireTick() {
			t.Fatalf("tick %d: expected a line to be removed", i)
		}
	}
	if b.ExpireTick() {
		t.Fatalf("expected fourth tick to return false on empty buffer")
	}
}

func TestEmptyFragmentIsNoop(t *testing.T) {
	b := New(3, 20, 8)
	b.Push("")
	if b.LineCount() != 0 {
		t.Fatalf("expected no lines for empty fragment, got %d", b.LineCount())
	}
}

func TestUpdateConfigCoercesZeroExpiry(t *testing.T) {
	b := New(3, 20, 8)
	b.UpdateConfig(20, 0)
	if b.expireSecs != 8 {
		t.Fatalf("expected expire_secs to coerce to 8, got %d", b.expireSecs)
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
