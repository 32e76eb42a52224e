// Package inference implements the pluggable speech-recognition engine
// contract, its exec-subprocess and native CGO backends, and the worker
// and engine-swap coordinator that drive chunks through whatever engine
// is currently installed.
package inference

import (
	"errors"

	"github.com/rillaudio/livecaptions/internal/audio"
)

// Chunk is one fixed-size mono sample batch, shared with the audio
// package so the bridge can send directly into an engine's channel
// without a conversion step.
type Chunk = audio.Chunk

// ErrConstructionFailed wraps engine construction failures, which are
// fatal for the caller that requested the engine (inference cannot
// start), but never fatal for an engine swap away from a currently
// running engine.
var ErrConstructionFailed = errors.New("inference engine construction failed")

// Engine is the pluggable speech-recognition contract. Returning a nil
// string pointer means "more audio needed"; a non-nil pointer is a
// recognized fragment whose leading whitespace carries word-boundary
// information and must not be trimmed.
type Engine interface {
	SampleRate() int
	ProcessChunk(pcm Chunk) (*string, error)
	Close() error
}

// ExecutionProvider distinguishes where an engine actually runs.
type ExecutionProvider int

const (
	ExecutionCPU ExecutionProvider = iota
	ExecutionGPU
)

func (p ExecutionProvider) String() string {
	if p == ExecutionGPU {
		return "gpu"
	}
	return "cpu"
}
