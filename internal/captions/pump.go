package captions

import (
	"context"
	"log/slog"
	"time"
)

// CaptionSink receives the buffer's current display text after every
// mutation, normally a renderer.Sink's caption channel.
type CaptionSink interface {
	PushCaption(text string)
}

// Pump is the single goroutine that owns a Buffer: it is the only caller
// of Buffer.Push and Buffer.ExpireTick, satisfying the package's
// single-writer contract while still letting any number of inference
// workers hand it fragments concurrently through a channel.
type Pump struct {
	buffer   *Buffer
	sink     CaptionSink
	log      *slog.Logger
	fragments chan string
	tick     time.Duration
}

// NewPump wraps buffer with a fragment channel and an expiry ticker. tick
// of 0 defaults to 1 second.
func NewPump(buffer *Buffer, sink CaptionSink, log *slog.Logger, tick time.Duration) *Pump {
	if tick <= 0 {
		tick = time.Second
	}
	return &Pump{
		buffer:    buffer,
		sink:      sink,
		log:       log.With(slog.String("component", "caption-pump")),
		fragments: make(chan string, 32),
		tick:      tick,
	}
}

// Push implements inference.FragmentSink: it hands the fragment to the
// pump goroutine rather than mutating the buffer directly, so any worker
// goroutine can call it safely.
func (p *Pump) Push(fragment string) {
	select {
	case p.fragments <- fragment:
	default:
		p.log.Warn("caption fragment channel full, dropping fragment")
	}
}

// Run drains fragments and drives expiry until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case fragment := <-p.fragments:
			p.buffer.Push(fragment)
			p.sink.PushCaption(p.buffer.DisplayText())
		case <-ticker.C:
			if p.buffer.ExpireTick() {
				p.sink.PushCaption(p.buffer.DisplayText())
			}
		}
	}
}
