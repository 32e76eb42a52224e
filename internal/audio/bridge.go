package audio

import (
	"context"
	"log/slog"
	"time"
)

// bridgeReadBatch is the number of samples drained from the ring per
// iteration when data is available.
const bridgeReadBatch = 4096

// bridgeIdleSleep is how long the bridge waits before re-checking an
// empty ring, and the retry interval while a chunk send contends with an
// in-progress engine swap.
const bridgeIdleSleep = 5 * time.Millisecond

// Bridge decouples the real-time ring producer from the inference
// consumer: it drains the ring, feeds the resampler, and forwards
// produced chunks to the currently installed inference sink. It is the
// only consumer of the ring and the only producer to the sink.
type Bridge struct {
	ring      *Ring
	resampler *Resampler
	sink      *InferenceSink
	log       *slog.Logger
}

// NewBridge constructs a bridge over ring, resampler, and sink.
func NewBridge(ring *Ring, resampler *Resampler, sink *InferenceSink, log *slog.Logger) *Bridge {
	return &Bridge{
		ring:      ring,
		resampler: resampler,
		sink:      sink,
		log:       log.With(slog.String("component", "audio-bridge")),
	}
}

// Run drains the ring until ctx is cancelled. On shutdown it flushes any
// partial resampler remainder (discarded, since it cannot form a full
// chunk) and returns.
func (b *Bridge) Run(ctx context.Context) {
	buf := make([]float32, bridgeReadBatch)

	for {
		select {
		case <-ctx.Done():
			b.resampler.Flush()
			return
		default:
		}

		n := b.ring.Read(buf)
		if n == 0 {
			select {
			case <-ctx.Done():
				b.resampler.Flush()
				return
			case <-time.After(bridgeIdleSleep):
			}
			continue
		}

		chunks, err := b.resampler.Push(buf[:n])
		if err != nil {
			b.log.Warn("resample window failed, skipping", slog.String("error", err.Error()))
		}

		for _, c := range chunks {
			b.forward(ctx, c)
		}
	}
}

// forward sends one chunk to the current sink, retrying briefly while an
// engine swap is in progress rather than dropping it, per the bridge's
// contract: it does not discard a chunk unless the whole pipeline is
// shutting down.
func (b *Bridge) forward(ctx context.Context, c Chunk) {
	for {
		if b.sink.TrySend(c) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(bridgeIdleSleep):
		}
	}
}
