package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

const (
	// InputWindowFrames is the number of interleaved stereo frames
	// accumulated before one resample pass runs.
	InputWindowFrames = 7680
	// OutputChunkSamples is the number of mono 16 kHz samples produced by
	// exactly one full input window, given the fixed 3:1 rate ratio.
	OutputChunkSamples = 2560
)

// Chunk is one fixed-size 160 ms mono 16 kHz sample chunk.
type Chunk [OutputChunkSamples]float32

// rateConverter is the subset of resampling.Resampler this package relies
// on, extracted so tests can supply a deterministic fake instead of
// driving the real FFT converter.
type rateConverter interface {
	Process(input []float64) ([]float64, error)
}

// Resampler converts interleaved 48 kHz stereo float32 input into
// contiguous 2560-sample 16 kHz mono chunks. It accumulates input until a
// full 7680-frame window is available, resamples each channel
// independently, downmixes by arithmetic mean, and drains whole chunks
// from the resulting accumulator.
type Resampler struct {
	inputRate  int
	outputRate int

	left  rateConverter
	right rateConverter

	pending []float32 // interleaved stereo, not yet windowed
	accum   []float32 // mono samples awaiting chunking
}

// NewResampler constructs a resampler for the given input/output sample
// rates. Per-channel mono resamplers are used rather than a single
// interleaved-stereo instance so each channel's rate conversion is
// independent of the other's buffering state.
func NewResampler(inputRate, outputRate int) (*Resampler, error) {
	cfg := func() *resampling.Config {
		return &resampling.Config{
			InputRate:  float64(inputRate),
			OutputRate: float64(outputRate),
			Channels:   1,
			Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
		}
	}

	left, err := resampling.New(cfg())
	if err != nil {
		return nil, fmt.Errorf("create left channel resampler: %w", err)
	}
	right, err := resampling.New(cfg())
	if err != nil {
		return nil, fmt.Errorf("create right channel resampler: %w", err)
	}

	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		left:       left,
		right:      right,
	}, nil
}

// Push accumulates interleaved stereo samples and returns zero or more
// full mono chunks produced from whole 7680-frame windows. A rate
// conversion failure for one window is reported via err but does not
// poison the resampler's state: the failing window is skipped and
// accumulation continues from the next push.
func (r *Resampler) Push(samples []float32) (chunks []Chunk, err error) {
	r.pending = append(r.pending, samples...)

	windowSamples := InputWindowFrames * 2
	for len(r.pending) >= windowSamples {
		window := r.pending[:windowSamples]
		r.pending = r.pending[windowSamples:]

		mono, werr := r.processWindow(window)
		if werr != nil {
			err = werr
			continue
		}
		r.accum = append(r.accum, mono...)
	}

	for len(r.accum) >= OutputChunkSamples {
		var c Chunk
		copy(c[:], r.accum[:OutputChunkSamples])
		chunks = append(chunks, c)
		r.accum = r.accum[OutputChunkSamples:]
	}

	return chunks, err
}

// Flush drains any partial remainder as a single short chunk-shaped slice
// (not padded to OutputChunkSamples), used only on shutdown or source
// switch.
func (r *Resampler) Flush() []float32 {
	remainder := r.accum
	r.accum = nil
	r.pending = nil
	return remainder
}

func (r *Resampler) processWindow(window []float32) ([]float32, error) {
	frames := len(window) / 2
	leftIn := make([]float64, frames)
	rightIn := make([]float64, frames)
	for i := 0; i < frames; i++ {
		leftIn[i] = float64(window[2*i])
		rightIn[i] = float64(window[2*i+1])
	}

	leftOut, err := r.left.Process(leftIn)
	if err != nil {
		return nil, fmt.Errorf("resample left channel: %w", err)
	}
	rightOut, err := r.right.Process(rightIn)
	if err != nil {
		return nil, fmt.Errorf("resample right channel: %w", err)
	}

	n := len(leftOut)
	if len(rightOut) < n {
		n = len(rightOut)
	}
	mono := make([]float32, n)
	for i := 0; i < n; i++ {
		mono[i] = float32((leftOut[i] + rightOut[i]) / 2)
	}
	return mono, nil
}
