package inference

import (
	"log/slog"
	"strings"
)

// FragmentSink receives recognized fragment strings. The renderer-side
// caption buffer implements this.
type FragmentSink interface {
	Push(fragment string)
}

// Worker owns one engine instance and drains a chunk channel, forwarding
// non-empty fragments to a sink. It never terminates on a per-chunk
// processing error — only when its input channel closes.
type Worker struct {
	engine Engine
	chunks <-chan Chunk
	sink   FragmentSink
	log    *slog.Logger
}

// NewWorker constructs a worker bound to chunks and forwarding to sink.
func NewWorker(engine Engine, chunks <-chan Chunk, sink FragmentSink, log *slog.Logger) *Worker {
	return &Worker{
		engine: engine,
		chunks: chunks,
		sink:   sink,
		log:    log.With(slog.String("component", "inference-worker")),
	}
}

// Run drains chunks until the channel closes (the engine-swap coordinator
// replaced this worker's sink endpoint, or the pipeline is shutting
// down), then closes the engine.
func (w *Worker) Run() {
	defer func() {
		if err := w.engine.Close(); err != nil {
			w.log.Warn("engine close failed", slog.String("error", err.Error()))
		}
	}()

	for chunk := range w.chunks {
		fragment, err := w.engine.ProcessChunk(chunk)
		if err != nil {
			w.log.Warn("chunk processing failed, skipping", slog.String("error", err.Error()))
			continue
		}
		if fragment == nil {
			continue
		}
		if strings.TrimSpace(*fragment) == "" {
			continue
		}
		w.sink.Push(*fragment)
	}
}
