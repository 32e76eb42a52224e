package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnavailableHost is returned when the audio graph cannot be reached at
// all — fatal at startup.
var ErrUnavailableHost = errors.New("audio host unavailable")

// FallbackEvent reports that the currently captured node disappeared and
// capture fell back to SystemMix.
type FallbackEvent struct {
	LostNodeID   uint32
	LostNodeName string
}

// Backend is the real-time audio connection the capture worker drives.
// Implementations own the native (or simulated) stream and push raw
// interleaved stereo float32 samples into the ring via the supplied
// writer function, which must never block or allocate on the call path
// the backend uses for delivery.
type Backend interface {
	// Open starts streaming from source, delivering samples to write
	// until the returned stop function is called or ctx is cancelled.
	Open(ctx context.Context, source Source, write func([]float32)) (stop func(), err error)
}

// Capture owns the connection to the selected source, the ring producer,
// the node directory, and fallback detection. It implements the
// Disconnected -> Capturing(source) -> Switching -> Capturing(new)|
// FallbackToMix|Terminated state machine.
type Capture struct {
	backend Backend
	ring    *Ring
	dir     *NodeDirectory
	log     *slog.Logger

	mu      sync.Mutex
	current Source
	stop    func()

	commands chan Command
	fallback chan FallbackEvent
	done     chan struct{}
	once     sync.Once
}

// NewCapture constructs a capture worker against the given backend, ring,
// and node directory.
func NewCapture(backend Backend, ring *Ring, dir *NodeDirectory, log *slog.Logger) *Capture {
	return &Capture{
		backend:  backend,
		ring:     ring,
		dir:      dir,
		log:      log.With(slog.String("component", "audio-capture")),
		commands: make(chan Command, 8),
		fallback: make(chan FallbackEvent, 4),
		done:     make(chan struct{}),
	}
}

// Start connects to initial and begins the control loop. It returns the
// command channel, the fallback event channel, and an error if the audio
// graph could not be reached at all.
func (c *Capture) Start(ctx context.Context, initial Source) (chan<- Command, <-chan FallbackEvent, error) {
	if err := c.connect(ctx, initial); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnavailableHost, err)
	}

	go c.run(ctx)
	return c.commands, c.fallback, nil
}

// Done reports pipeline termination for callers that want to join.
func (c *Capture) Done() <-chan struct{} {
	return c.done
}

func (c *Capture) run(ctx context.Context) {
	defer c.terminate()

	for {
		select {
		case <-ctx.Done():
			c.disconnect()
			return
		case <-c.done:
			c.disconnect()
			return
		case cmd, ok := <-c.commands:
			if !ok {
				c.disconnect()
				return
			}
			if cmd.Shutdown {
				c.disconnect()
				return
			}
			if cmd.SwitchTo != nil {
				c.handleSwitch(ctx, *cmd.SwitchTo)
			}
		}
	}
}

// terminate closes the done channel exactly once. It is the only way the
// done channel is closed, so both the run loop's normal exit and a
// fallback/switch path that gives up can call it safely.
func (c *Capture) terminate() {
	c.once.Do(func() { close(c.done) })
}

func (c *Capture) handleSwitch(ctx context.Context, target Source) {
	c.log.Info("switching capture source", slog.Any("kind", target.Kind))
	c.disconnect()

	if err := c.connect(ctx, target); err != nil {
		c.log.Warn("switch target failed, attempting system mix fallback",
			slog.String("error", err.Error()))
		if err := c.connect(ctx, SystemMix()); err != nil {
			c.log.Error("fallback to system mix failed, terminating capture",
				slog.String("error", err.Error()))
			c.terminate()
			return
		}
	}
}

// OnGraphEvent is invoked by the backend (or a test) when a node appears
// or disappears in the host audio graph. If the removed node is the one
// currently captured, this triggers an automatic fallback to SystemMix.
func (c *Capture) OnGraphEvent(n Node, removed bool) {
	if removed {
		c.dir.Remove(n.ID)
		c.mu.Lock()
		isCurrent := c.current.Kind == SourceApplication && c.current.NodeID == n.ID
		c.mu.Unlock()
		if isCurrent {
			c.triggerFallback(n)
		}
		return
	}
	c.dir.Add(n)
}

func (c *Capture) triggerFallback(lost Node) {
	c.log.Warn("captured node disappeared, falling back to system mix",
		slog.Uint64("lost_node_id", uint64(lost.ID)), slog.String("lost_node_name", lost.DisplayName))

	err := retryOnce(func() error {
		return c.connect(context.Background(), SystemMix())
	}, 200*time.Millisecond)
	if err != nil {
		c.log.Error("reconnect to system mix after fallback failed, terminating",
			slog.String("error", err.Error()))
		c.terminate()
		return
	}

	select {
	case c.fallback <- FallbackEvent{LostNodeID: lost.ID, LostNodeName: lost.DisplayName}:
	default:
		c.log.Warn("fallback event channel full, dropping notification")
	}
}

func (c *Capture) connect(ctx context.Context, source Source) error {
	stop, err := c.backend.Open(ctx, source, func(samples []float32) {
		c.ring.TryWrite(samples)
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = source
	c.stop = stop
	c.mu.Unlock()
	return nil
}

func (c *Capture) disconnect() {
	c.mu.Lock()
	stop := c.stop
	c.stop = nil
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// CurrentSource reports the currently captured source, for tray polling.
func (c *Capture) CurrentSource() Source {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// retryOnce is a small helper used by the fallback path for a single
// bounded retry on reconnection, matching the "retry once then terminate" timeout
// policy for post-fallback reconnection failures.
func retryOnce(attempt func() error, delay time.Duration) error {
	if err := attempt(); err == nil {
		return nil
	}
	time.Sleep(delay)
	return attempt()
}
