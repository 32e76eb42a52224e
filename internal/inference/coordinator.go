package inference

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rillaudio/livecaptions/internal/audio"
	"github.com/rillaudio/livecaptions/internal/bus"
	"github.com/rillaudio/livecaptions/internal/eventstore"
	"github.com/rillaudio/livecaptions/internal/protocol"
)

// chunkChannelCapacity bounds the channel handed to each inference
// worker; it only needs to absorb the bridge's retry granularity, not
// buffer indefinitely.
const chunkChannelCapacity = 8

// Factory constructs an Engine for the named variant. Coordinator calls
// this on every SwitchEngine request; construction failures are logged
// and the currently running engine keeps serving.
type Factory func(variant string) (Engine, error)

// Coordinator replaces the running inference engine at runtime without
// restarting capture, the ring, or the resampler: it builds the new
// engine, spawns a worker bound to a fresh chunk channel, and swaps the
// bridge's sink endpoint under a short-held lock. The old worker observes
// its channel close and exits on its own.
type Coordinator struct {
	sink    *audio.InferenceSink
	factory Factory
	bus     *bus.Client
	events  *eventstore.Store
	log     *slog.Logger

	mu      sync.Mutex
	current string
}

// NewCoordinator constructs a coordinator over sink. busClient and events
// may both be nil (tests, or when the control bus / event log are
// disabled).
func NewCoordinator(sink *audio.InferenceSink, factory Factory, busClient *bus.Client, events *eventstore.Store, log *slog.Logger) *Coordinator {
	return &Coordinator{
		sink:    sink,
		factory: factory,
		bus:     busClient,
		events:  events,
		log:     log.With(slog.String("component", "engine-swap-coordinator")),
	}
}

// SwitchEngine constructs the named engine variant and, on success,
// atomically swaps the bridge's sink to a fresh channel served by a new
// worker. The old chunk channel is closed once the swap completes,
// letting the superseded worker drain and exit. Delivery ordering is
// preserved: no chunk produced before the swap reaches the new engine,
// and none produced after reaches the old one, because the swap is a
// single pointer replacement under sink's lock, and the sink performs
// every send under that same lock — so closing the displaced channel
// here can never race a bridge send still in flight against it.
func (c *Coordinator) SwitchEngine(variant string, caption FragmentSink) error {
	engine, err := c.factory(variant)
	if err != nil {
		c.log.Warn("engine construction failed, keeping current engine",
			slog.String("variant", variant), slog.String("error", err.Error()))
		c.recordEvent(eventstore.EventEngineConstructFailed, variant)
		return err
	}

	chunks := make(chan Chunk, chunkChannelCapacity)
	worker := NewWorker(engine, chunks, caption, c.log)
	go worker.Run()

	previous := c.sink.Swap(chunks)
	if previous != nil {
		close(previous)
	}

	c.mu.Lock()
	c.current = variant
	c.mu.Unlock()

	c.log.Info("engine switched", slog.String("variant", variant))
	c.recordEvent(eventstore.EventEngineSwapped, variant)
	c.publishSwitched(engine)

	return nil
}

// CurrentVariant reports the name of the currently installed engine.
func (c *Coordinator) CurrentVariant() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Coordinator) recordEvent(eventType eventstore.EventType, detail string) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.events.Append(ctx, eventType, detail); err != nil {
		c.log.Warn("failed to record lifecycle event", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) publishSwitched(engine Engine) {
	if c.bus == nil {
		return
	}
	ev := protocol.EngineSwitchedEvent{
		Engine:    c.CurrentVariant(),
		Timestamp: time.Now().UTC(),
	}
	if native, ok := engine.(*NativeEngine); ok {
		ev.RequestedGPU = native.RequestedProvider() == ExecutionGPU
		ev.RunningOnGPU = native.RunningOnGPU()
	}
	c.bus.PublishJSON(protocol.SubjectEngineSwitched, ev)
}
