package audio

import (
	"context"
	"math"
	"sync"
	"time"
)

// MockBackend generates synthetic stereo sine-wave PCM on a fixed tick,
// standing in for a real audio graph connection in tests.
type MockBackend struct {
	SampleRate int
	FreqHz     float64
	FrameBurst int

	mu      sync.Mutex
	phase   float64
	opened  []Source
	running bool
}

// NewMockBackend constructs a mock backend with reasonable defaults
// (440Hz tone at 48kHz, 480-frame bursts).
func NewMockBackend() *MockBackend {
	return &MockBackend{SampleRate: 48000, FreqHz: 440, FrameBurst: 480}
}

// Open starts a goroutine that writes synthetic stereo samples to write
// every 10ms until stop is called.
func (m *MockBackend) Open(ctx context.Context, source Source, write func([]float32)) (func(), error) {
	m.mu.Lock()
	m.opened = append(m.opened, source)
	m.running = true
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Duration(m.FrameBurst) * time.Second / time.Duration(m.SampleRate))
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				write(m.nextBurst())
			}
		}
	}()

	stop := func() {
		cancel()
		<-done
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}
	return stop, nil
}

func (m *MockBackend) nextBurst() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]float32, m.FrameBurst*2)
	step := 2 * math.Pi * m.FreqHz / float64(m.SampleRate)
	for i := 0; i < m.FrameBurst; i++ {
		v := float32(math.Sin(m.phase))
		out[2*i] = v
		out[2*i+1] = v
		m.phase += step
	}
	return out
}

// OpenedSources reports which sources Open was called with, for test
// assertions about switch behavior.
func (m *MockBackend) OpenedSources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Source(nil), m.opened...)
}
