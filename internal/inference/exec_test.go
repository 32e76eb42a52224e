package inference

import "testing"

func TestNewExecEngineRejectsEmptyCommand(t *testing.T) {
	_, err := NewExecEngine("   ", 16000, testLog())
	if err == nil {
		t.Fatal("expected an error for an empty command")
	}
}

func TestNewExecEngineParsesCommand(t *testing.T) {
	e, err := NewExecEngine("echo hello", 16000, testLog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.SampleRate() != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", e.SampleRate())
	}
	if len(e.cmd) != 2 || e.cmd[0] != "echo" || e.cmd[1] != "hello" {
		t.Fatalf("unexpected parsed command: %v", e.cmd)
	}
}
