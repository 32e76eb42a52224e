package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rillaudio/livecaptions/internal/bus"
	"github.com/rillaudio/livecaptions/internal/protocol"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// NodeKind distinguishes the two kinds of audio-producing node the
// directory tracks.
type NodeKind string

const (
	NodeKindMonitor   NodeKind = "monitor"
	NodeKindAppStream NodeKind = "app_stream"
)

// Node is one entry in the directory: a node id paired with display
// metadata. Duplicate display names are disambiguated by appending the id.
type Node struct {
	ID          uint32
	DisplayName string
	Kind        NodeKind
}

// NodeDirectory tracks live audio-producing nodes from the host graph's
// add/remove callbacks. Unlike the capability registry it is adapted
// from, there is no heartbeat/health-timeout loop: nodes appear and
// disappear from direct graph events, not from a missed heartbeat.
type NodeDirectory struct {
	log *slog.Logger
	bus *bus.Client

	mu    sync.RWMutex
	nodes map[uint32]Node

	meter     metric.Meter
	nodeGauge metric.Int64ObservableGauge
}

// NewNodeDirectory constructs an empty directory. busClient may be nil,
// in which case node events are not published to the control-plane bus.
func NewNodeDirectory(busClient *bus.Client, log *slog.Logger) *NodeDirectory {
	d := &NodeDirectory{
		log:   log.With(slog.String("component", "node-directory")),
		bus:   busClient,
		nodes: make(map[uint32]Node),
		meter: otel.Meter("github.com/rillaudio/livecaptions/audio"),
	}
	if err := d.initMetrics(); err != nil {
		d.log.Warn("failed to initialize node directory metrics", slog.String("error", err.Error()))
	}
	return d
}

// Add registers a node appearing in the audio graph. Disambiguation by id
// happens at display time (Snapshot), not at storage time, so the
// original display name is preserved.
func (d *NodeDirectory) Add(n Node) {
	d.mu.Lock()
	d.nodes[n.ID] = n
	d.mu.Unlock()

	d.log.Info("node added", slog.Uint64("node_id", uint64(n.ID)), slog.String("name", n.DisplayName))
	d.publish(protocol.SubjectNodeAdded, protocol.NodeEvent{
		NodeID:      n.ID,
		DisplayName: n.DisplayName,
		Kind:        string(n.Kind),
		Timestamp:   time.Now().UTC(),
	})
}

// Remove deregisters a node that disappeared from the audio graph.
// Reports whether the node was known.
func (d *NodeDirectory) Remove(id uint32) (Node, bool) {
	d.mu.Lock()
	n, ok := d.nodes[id]
	if ok {
		delete(d.nodes, id)
	}
	d.mu.Unlock()

	if !ok {
		return Node{}, false
	}

	d.log.Info("node removed", slog.Uint64("node_id", uint64(id)), slog.String("name", n.DisplayName))
	d.publish(protocol.SubjectNodeRemoved, protocol.NodeEvent{
		NodeID:      n.ID,
		DisplayName: n.DisplayName,
		Kind:        string(n.Kind),
		Removed:     true,
		Timestamp:   time.Now().UTC(),
	})
	return n, true
}

// Has reports whether id is currently a known node.
func (d *NodeDirectory) Has(id uint32) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.nodes[id]
	return ok
}

// Snapshot returns a copy of the current directory contents, safe for the
// tray UI or any other reader to retain without holding the lock.
// Snapshot returns the directory's current nodes in arbitrary order. Node
// ids disambiguate duplicate display names here (display time), not when
// Add stores the node, so the stored display name always stays the raw
// one the host graph reported.
func (d *NodeDirectory) Snapshot() []Node {
	d.mu.RLock()
	defer d.mu.RUnlock()

	counts := make(map[string]int, len(d.nodes))
	for _, n := range d.nodes {
		counts[n.DisplayName]++
	}

	out := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		if counts[n.DisplayName] > 1 {
			n.DisplayName = fmt.Sprintf("%s (id:%d)", n.DisplayName, n.ID)
		}
		out = append(out, n)
	}
	return out
}

func (d *NodeDirectory) publish(subject string, event protocol.NodeEvent) {
	if d.bus == nil {
		return
	}
	d.bus.PublishJSON(subject, event)
}

func (d *NodeDirectory) initMetrics() error {
	if d.meter == nil {
		return nil
	}
	gauge, err := d.meter.Int64ObservableGauge("livecaptions.audio.nodes",
		metric.WithDescription("Number of known audio-producing nodes"))
	if err != nil {
		return err
	}
	d.nodeGauge = gauge
	_, err = d.meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		d.mu.RLock()
		count := int64(len(d.nodes))
		d.mu.RUnlock()
		obs.ObserveInt64(gauge, count)
		return nil
	}, gauge)
	return err
}
