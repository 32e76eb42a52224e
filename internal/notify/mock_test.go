package notify

import (
	"errors"
	"testing"
	"time"
)

func TestMockNotifierRecordsCalls(t *testing.T) {
	m := NewMockNotifier(nil)
	if err := m.Notify("s1", "b1", time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Notify("s2", "b2", 2*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := m.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 recorded calls, got %d", len(calls))
	}
	if calls[0].Summary != "s1" || calls[1].Body != "b2" {
		t.Fatalf("unexpected recorded calls: %+v", calls)
	}
}

func TestMockNotifierReturnsConfiguredError(t *testing.T) {
	wantErr := errors.New("boom")
	m := NewMockNotifier(wantErr)
	if err := m.Notify("s", "b", time.Second); err != wantErr {
		t.Fatalf("expected configured error, got %v", err)
	}
	if len(m.Calls()) != 1 {
		t.Fatal("expected the failing call to still be recorded")
	}
}
