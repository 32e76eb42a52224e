package audio

import "testing"

// fakeConverter mimics an exact-ratio FFT rate converter: N input samples
// produce exactly N*num/den output samples, matching the real 48000->16000
// 3:1 ratio used throughout this package's tests.
type fakeConverter struct {
	num, den int
}

func (f *fakeConverter) Process(input []float64) ([]float64, error) {
	return make([]float64, len(input)*f.num/f.den), nil
}

func newTestResampler() *Resampler {
	return &Resampler{
		inputRate:  48000,
		outputRate: 16000,
		left:       &fakeConverter{num: 1, den: 3},
		right:      &fakeConverter{num: 1, den: 3},
	}
}

func TestResamplerProducesExactlyOneChunkForFullWindow(t *testing.T) {
	r := newTestResampler()
	input := make([]float32, InputWindowFrames*2)

	chunks, err := r.Push(input)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk for a full window, got %d", len(chunks))
	}
}

func TestResamplerProducesNoChunkForPartialWindow(t *testing.T) {
	r := newTestResampler()
	input := make([]float32, (InputWindowFrames-1)*2)

	chunks, err := r.Push(input)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks for a sub-window residual, got %d", len(chunks))
	}
}

func TestResamplerChunkingProperty(t *testing.T) {
	r := newTestResampler()
	const windows = 5
	input := make([]float32, InputWindowFrames*2*windows)

	chunks, err := r.Push(input)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(chunks) != windows {
		t.Fatalf("expected %d chunks for %d full windows, got %d", windows, windows, len(chunks))
	}
	for _, c := range chunks {
		if len(c) != OutputChunkSamples {
			t.Fatalf("expected every chunk to have %d samples, got %d", OutputChunkSamples, len(c))
		}
	}
}

func TestResamplerDownmixIsArithmeticMean(t *testing.T) {
	r := newTestResampler()
	input := make([]float32, InputWindowFrames*2)
	for i := 0; i < InputWindowFrames; i++ {
		input[2*i] = 1.0   // left
		input[2*i+1] = 3.0 // right
	}

	chunks, err := r.Push(input)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	for _, v := range chunks[0] {
		if v != 2.0 {
			t.Fatalf("expected downmix (1+3)/2 == 2.0, got %v", v)
		}
	}
}

func TestFlushReturnsEmptyRemainderAtChunkBoundary(t *testing.T) {
	r := newTestResampler()
	input := make([]float32, InputWindowFrames*2)
	if _, err := r.Push(input); err != nil {
		t.Fatalf("push: %v", err)
	}
	// One full window with a 1:3 fake ratio yields exactly one chunk, so
	// the accumulator should be empty and Flush returns nothing.
	if rem := r.Flush(); len(rem) != 0 {
		t.Fatalf("expected empty remainder after an exact chunk boundary, got %d samples", len(rem))
	}
}
