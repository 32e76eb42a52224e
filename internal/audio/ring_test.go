package audio

import "testing"

func TestRingWriteReadRoundTrip(t *testing.T) {
	r := NewRing(16)
	in := []float32{1, 2, 3, 4}

	if n := r.TryWrite(in); n != 4 {
		t.Fatalf("expected to write 4 samples, wrote %d", n)
	}
	if r.Len() != 4 {
		t.Fatalf("expected len 4, got %d", r.Len())
	}

	out := make([]float32, 4)
	if n := r.Read(out); n != 4 {
		t.Fatalf("expected to read 4 samples, read %d", n)
	}
	for i, v := range in {
		if out[i] != v {
			t.Fatalf("sample %d: got %v want %v", i, out[i], v)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty ring after full read, got len %d", r.Len())
	}
}

func TestRingOverflowDropsTailMostSamples(t *testing.T) {
	r := NewRing(4)
	first := r.TryWrite([]float32{1, 2, 3, 4})
	if first != 4 {
		t.Fatalf("expected first write to fill capacity, wrote %d", first)
	}

	second := r.TryWrite([]float32{5, 6})
	if second != 0 {
		t.Fatalf("expected overflow write to drop all new samples, wrote %d", second)
	}
	if r.Len() != 4 {
		t.Fatalf("expected ring to remain full, got len %d", r.Len())
	}
}

func TestRingPartialOverflowWritesWhatFits(t *testing.T) {
	r := NewRing(4)
	r.TryWrite([]float32{1, 2})

	n := r.TryWrite([]float32{3, 4, 5, 6})
	if n != 2 {
		t.Fatalf("expected to write only the 2 samples that fit, wrote %d", n)
	}
	if r.Len() != 4 {
		t.Fatalf("expected ring to be full, got len %d", r.Len())
	}
}

func TestRingTryWriteNonBlockingOnContention(t *testing.T) {
	r := NewRing(16)
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.TryWrite([]float32{1, 2, 3})
	if n != 0 {
		t.Fatalf("expected TryWrite to drop samples under lock contention, wrote %d", n)
	}
}
