package audio

import (
	"context"
	"testing"
	"time"
)

func TestBridgeForwardsChunksFromRingToSink(t *testing.T) {
	ring := NewRing(RingCapacity)
	resampler := &Resampler{
		left:  &fakeConverter{num: 1, den: 3},
		right: &fakeConverter{num: 1, den: 3},
	}
	sinkCh := make(chan Chunk, 4)
	sink := NewInferenceSink(sinkCh)
	b := NewBridge(ring, resampler, sink, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	go b.Run(ctx)
	defer cancel()

	ring.TryWrite(make([]float32, InputWindowFrames*2))

	select {
	case <-sinkCh:
	case <-time.After(time.Second):
		t.Fatal("expected a chunk to reach the sink")
	}
}

func TestBridgeRetriesWhileSinkSwapInProgress(t *testing.T) {
	ring := NewRing(RingCapacity)
	resampler := &Resampler{
		left:  &fakeConverter{num: 1, den: 3},
		right: &fakeConverter{num: 1, den: 3},
	}
	sink := NewInferenceSink(nil) // no endpoint installed yet
	b := NewBridge(ring, resampler, sink, testLog())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		b.forward(ctx, Chunk{})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	newCh := make(chan Chunk, 1)
	sink.Swap(newCh)

	select {
	case <-newCh:
	case <-time.After(time.Second):
		t.Fatal("expected the retried send to land on the newly installed sink")
	}
	<-done
}
