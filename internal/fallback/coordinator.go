// Package fallback implements the coordinator that reacts to capture-node
// disappearance: it notifies the user, updates the tray-visible current
// source, and persists the change to the configuration store.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rillaudio/livecaptions/internal/audio"
	"github.com/rillaudio/livecaptions/internal/bus"
	"github.com/rillaudio/livecaptions/internal/config"
	"github.com/rillaudio/livecaptions/internal/eventstore"
	"github.com/rillaudio/livecaptions/internal/protocol"
)

// Notifier is the minimal desktop-notification contract the coordinator
// needs; internal/notify implements it.
type Notifier interface {
	Notify(summary, body string, timeout time.Duration) error
}

// ConfigPersister persists a config change to the on-disk store. Failure
// is logged but never fatal.
type ConfigPersister interface {
	Save(path string, cfg config.Config) error
}

// SaveFunc adapts a bare function (such as config.Save) to ConfigPersister.
type SaveFunc func(path string, cfg config.Config) error

// Save implements ConfigPersister.
func (f SaveFunc) Save(path string, cfg config.Config) error { return f(path, cfg) }

// Coordinator consumes audio.FallbackEvent values and drives the
// user-visible side effects of a source fallback.
type Coordinator struct {
	notifier Notifier
	persist  ConfigPersister
	configPath string
	bus      *bus.Client
	events   *eventstore.Store
	log      *slog.Logger

	mu            sync.RWMutex
	currentSource audio.Source
	cfg           config.Config
}

// NewCoordinator constructs a fallback coordinator. busClient and events
// may be nil.
func NewCoordinator(notifier Notifier, persist ConfigPersister, configPath string, cfg config.Config, busClient *bus.Client, events *eventstore.Store, log *slog.Logger) *Coordinator {
	return &Coordinator{
		notifier:   notifier,
		persist:    persist,
		configPath: configPath,
		bus:        busClient,
		events:     events,
		log:        log.With(slog.String("component", "fallback-coordinator")),
		cfg:        cfg,
	}
}

// Run consumes fallback events from events until the channel closes or
// ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, events <-chan audio.FallbackEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.handle(ev)
		}
	}
}

func (c *Coordinator) handle(ev audio.FallbackEvent) {
	c.log.Info("handling fallback event",
		slog.Uint64("lost_node_id", uint64(ev.LostNodeID)), slog.String("lost_node_name", ev.LostNodeName))

	summary := "Live Captions: audio source lost"
	body := fmt.Sprintf("%q disappeared; switched to system audio", ev.LostNodeName)
	if err := c.notifier.Notify(summary, body, 5*time.Second); err != nil {
		c.log.Warn("failed to send fallback notification", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.currentSource = audio.SystemMix()
	c.cfg.AudioSource = config.AudioSourceConfig{Type: "system_mix"}
	cfgCopy := c.cfg
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.Save(c.configPath, cfgCopy); err != nil {
			c.log.Warn("failed to persist fallback source change", slog.String("error", err.Error()))
		}
	}

	c.recordEvent(ev)
	c.publish(ev)
}

// CurrentSource reports the tray-visible current capture source.
func (c *Coordinator) CurrentSource() audio.Source {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentSource
}

func (c *Coordinator) recordEvent(ev audio.FallbackEvent) {
	if c.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	detail := fmt.Sprintf("lost node %d (%s)", ev.LostNodeID, ev.LostNodeName)
	if err := c.events.Append(ctx, eventstore.EventSourceFallback, detail); err != nil {
		c.log.Warn("failed to record fallback lifecycle event", slog.String("error", err.Error()))
	}
}

func (c *Coordinator) publish(ev audio.FallbackEvent) {
	if c.bus == nil {
		return
	}
	c.bus.PublishJSON(protocol.SubjectFallbackTriggered, protocol.FallbackEvent{
		LostNodeID:   ev.LostNodeID,
		LostNodeName: ev.LostNodeName,
		Timestamp:    time.Now().UTC(),
	})
}
