// Package protocol defines the control-plane messages carried on the
// internal bus. None of these types appear on the audio data path —
// that path uses the typed Go channels in internal/audio and
// internal/inference directly.
package protocol

import "time"

// NodeEvent announces that an audio-producing node appeared or disappeared
// in the host audio graph.
type NodeEvent struct {
	NodeID      uint32    `json:"node_id"`
	DisplayName string    `json:"display_name"`
	Kind        string    `json:"kind"` // "monitor" | "app_stream"
	Removed     bool      `json:"removed"`
	Timestamp   time.Time `json:"timestamp"`
}

// FallbackEvent reports that capture fell back to the system mixdown after
// the previously captured node disappeared.
type FallbackEvent struct {
	LostNodeID   uint32    `json:"lost_node_id"`
	LostNodeName string    `json:"lost_node_name"`
	Timestamp    time.Time `json:"timestamp"`
}

// EngineSwitchedEvent reports a completed engine-swap, including whether a
// requested GPU execution provider actually landed on CPU.
type EngineSwitchedEvent struct {
	Engine        string    `json:"engine"`
	RequestedGPU  bool      `json:"requested_gpu"`
	RunningOnGPU  bool      `json:"running_on_gpu"`
	Timestamp     time.Time `json:"timestamp"`
}

// ConfigReloadedEvent reports that a content-changing config reload applied
// new appearance parameters.
type ConfigReloadedEvent struct {
	MaxLines   int       `json:"max_lines"`
	Width      int       `json:"width"`
	FontSize   float64   `json:"font_size"`
	ExpireSecs int       `json:"expire_secs"`
	Timestamp  time.Time `json:"timestamp"`
}

// RenderCommandEvent carries one renderer.Command across the bus to the
// external overlay process. Kind is the command's name rather than its
// numeric Go enum value, so the wire format doesn't depend on iota
// ordering; only the fields relevant to Kind are populated.
type RenderCommandEvent struct {
	Kind            string    `json:"kind"`
	Visible         bool      `json:"visible,omitempty"`
	Mode            string    `json:"mode,omitempty"`
	Locked          bool      `json:"locked,omitempty"`
	BackgroundColor string    `json:"background_color,omitempty"`
	TextColor       string    `json:"text_color,omitempty"`
	FontSize        float64   `json:"font_size,omitempty"`
	MaxLines        int       `json:"max_lines,omitempty"`
	Width           int       `json:"width,omitempty"`
	ExpireSecs      int       `json:"expire_secs,omitempty"`
	Caption         string    `json:"caption,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// CaptionUpdatedEvent carries the caption buffer's full current display
// text across the bus to the external overlay process.
type CaptionUpdatedEvent struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectNodeAdded         = "live.node.added"
	SubjectNodeRemoved       = "live.node.removed"
	SubjectFallbackTriggered = "live.fallback.triggered"
	SubjectEngineSwitched    = "live.engine.switched"
	SubjectConfigReloaded    = "live.config.reloaded"
	SubjectRenderCommand     = "live.render.command"
	SubjectCaptionUpdated    = "live.caption.updated"
)
