package audio

import "sync"

// InferenceSink is the shared, swappable send endpoint for mono chunks.
// The bridge worker is the sole reader; the engine-swap coordinator is the
// sole writer. Swaps are pointer-style replacements under a short-held
// lock, so the bridge never waits on engine construction work.
type InferenceSink struct {
	mu sync.Mutex
	ch chan Chunk
}

// NewInferenceSink wraps an initial channel endpoint.
func NewInferenceSink(ch chan Chunk) *InferenceSink {
	return &InferenceSink{ch: ch}
}

// TrySend forwards a chunk to whichever endpoint is currently installed,
// returning false without blocking if none is installed or the installed
// channel's buffer is full. The select runs under the lock so it cannot
// race a concurrent Swap: by the time Swap (and the coordinator's
// subsequent close of the displaced channel) observes the lock as free,
// any TrySend still using the old channel has already completed.
func (s *InferenceSink) TrySend(c Chunk) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ch == nil {
		return false
	}
	select {
	case s.ch <- c:
		return true
	default:
		return false
	}
}

// Swap atomically replaces the installed endpoint, returning the previous
// one so the caller can close it once the old inference worker has
// observed the channel closure and exited.
func (s *InferenceSink) Swap(next chan Chunk) (previous chan Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous = s.ch
	s.ch = next
	return previous
}

// Close clears the installed endpoint, signalling shutdown to the bridge.
func (s *InferenceSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ch = nil
}
