package inference

import (
	"testing"
	"time"

	"github.com/rillaudio/livecaptions/internal/audio"
)

func TestSwitchEngineReplacesSinkAndClosesOldChannel(t *testing.T) {
	initial := make(chan Chunk, 4)
	sink := audio.NewInferenceSink(initial)

	factory := func(variant string) (Engine, error) {
		return NewMockEngine(16000), nil
	}

	c := NewCoordinator(sink, factory, nil, nil, testLog())
	caption := &recordingSink{}

	if err := c.SwitchEngine("variant-a", caption); err != nil {
		t.Fatalf("switch engine: %v", err)
	}

	select {
	case _, open := <-initial:
		if open {
			t.Fatalf("expected initial channel to be drained/closed, got an open value")
		}
	case <-time.After(time.Second):
		t.Fatal("expected the old channel to close after the swap")
	}

	if c.CurrentVariant() != "variant-a" {
		t.Fatalf("expected current variant to be variant-a, got %q", c.CurrentVariant())
	}

	if !sink.TrySend(Chunk{}) {
		t.Fatalf("expected the swapped-in sink to accept sends")
	}
}

func TestSwitchEngineKeepsCurrentOnConstructionFailure(t *testing.T) {
	initial := make(chan Chunk, 4)
	sink := audio.NewInferenceSink(initial)

	calls := 0
	factory := func(variant string) (Engine, error) {
		calls++
		return nil, ErrConstructionFailed
	}

	c := NewCoordinator(sink, factory, nil, nil, testLog())
	caption := &recordingSink{}

	err := c.SwitchEngine("broken", caption)
	if err == nil {
		t.Fatal("expected construction failure to be returned")
	}
	if calls != 1 {
		t.Fatalf("expected factory to be called once, got %d", calls)
	}
	if !sink.TrySend(Chunk{}) {
		t.Fatalf("expected the original sink endpoint to remain installed and accept sends")
	}
}
