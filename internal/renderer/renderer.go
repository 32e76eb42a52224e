// Package renderer defines the core-to-external overlay boundary: a
// command channel the core writes to and a caption fragment channel the
// caption buffer's consumer drains. The core never calls into the
// renderer process synchronously — every interaction crosses one of
// these two channels.
package renderer

import "github.com/rillaudio/livecaptions/internal/config"

// OverlayMode mirrors config.Config's overlay_mode values.
type OverlayMode string

const (
	ModeDocked   OverlayMode = "docked"
	ModeFloating OverlayMode = "floating"
)

// Command is a tagged union of renderer directives. Exactly one field is
// set per value; Kind disambiguates which.
type Command struct {
	Kind CommandKind

	Visible    bool
	Mode       OverlayMode
	Locked     bool
	Appearance config.AppearanceConfig
	Caption    string
}

// CommandKind enumerates the renderer command variants named in spec.md's
// external-interfaces section.
type CommandKind int

const (
	SetVisible CommandKind = iota
	SetMode
	SetLocked
	UpdateAppearance
	SetCaption
	Quit
)

// String names the command kind for wire formats that shouldn't depend
// on Go's iota ordering.
func (k CommandKind) String() string {
	switch k {
	case SetVisible:
		return "set_visible"
	case SetMode:
		return "set_mode"
	case SetLocked:
		return "set_locked"
	case UpdateAppearance:
		return "update_appearance"
	case SetCaption:
		return "set_caption"
	case Quit:
		return "quit"
	default:
		return "unknown"
	}
}

// Sink is the channel pair the core writes renderer directives to. The
// core never blocks indefinitely on Commands: callers use a buffered
// channel and treat a full buffer as a dropped, re-coalescable update
// (the next appearance/caption push supersedes it).
type Sink struct {
	Commands chan Command
	Captions chan string
}

// NewSink constructs a renderer sink with the given command-channel
// buffer depth. The caption channel is unbuffered: every emitted
// fragment must be observed in order by the renderer process.
func NewSink(commandBuffer int) *Sink {
	return &Sink{
		Commands: make(chan Command, commandBuffer),
		Captions: make(chan string),
	}
}

// PushVisible sends a SetVisible command, dropping it if the command
// channel is full rather than blocking the caller.
func (s *Sink) PushVisible(visible bool) {
	s.trySend(Command{Kind: SetVisible, Visible: visible})
}

// PushMode sends a SetMode command.
func (s *Sink) PushMode(mode OverlayMode) {
	s.trySend(Command{Kind: SetMode, Mode: mode})
}

// PushLocked sends a SetLocked command.
func (s *Sink) PushLocked(locked bool) {
	s.trySend(Command{Kind: SetLocked, Locked: locked})
}

// PushAppearance sends an UpdateAppearance command.
func (s *Sink) PushAppearance(a config.AppearanceConfig) {
	s.trySend(Command{Kind: UpdateAppearance, Appearance: a})
}

// PushQuit sends a Quit command.
func (s *Sink) PushQuit() {
	s.trySend(Command{Kind: Quit})
}

// PushCaption sends caption text over the dedicated caption channel. This
// blocks until the renderer consumes it, matching spec.md's requirement
// that the core never calls into the renderer synchronously but the
// caption stream itself is strictly ordered.
func (s *Sink) PushCaption(text string) {
	s.Captions <- text
}

// Close signals the renderer process to shut down and stops accepting
// further sends.
func (s *Sink) Close() {
	close(s.Commands)
	close(s.Captions)
}

func (s *Sink) trySend(cmd Command) {
	select {
	case s.Commands <- cmd:
	default:
	}
}
