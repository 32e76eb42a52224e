package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AudioSource.Type != "system_mix" {
		t.Fatalf("expected default audio source system_mix, got %v", cfg.AudioSource.Type)
	}
	if cfg.Appearance.ExpireSecs != 8 {
		t.Fatalf("expected default expire_secs 8, got %d", cfg.Appearance.ExpireSecs)
	}
	if cfg.Audio.RingCapacity < cfg.Audio.SampleRate*2 {
		t.Fatalf("default ring capacity too small: %d", cfg.Audio.RingCapacity)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LIVECAP_ENGINE", "moonshine")
	t.Setenv("LIVECAP_INFERENCE_BACKEND", "exec")
	t.Setenv("LIVECAP_MODEL_PATH", "/tmp/model.bin")
	t.Setenv("LIVECAP_EXECUTION_GPU", "true")
	t.Setenv("LIVECAP_MAX_LINES", "5")
	t.Setenv("LIVECAP_EXPIRE_SECS", "12")
	t.Setenv("LIVECAP_LOCKED", "false")

	cfg := Default()
	if cfg.Inference.Command == "" {
		// exec backend requires a command; set one so validate() passes
		// after the override flips the backend to exec.
		cfg.Inference.Command = "fake-asr"
	}
	data, err := marshalForTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if loaded.Inference.Engine != "moonshine" {
		t.Fatalf("expected engine override, got %v", loaded.Inference.Engine)
	}
	if loaded.Inference.Backend != "exec" {
		t.Fatalf("expected backend override, got %v", loaded.Inference.Backend)
	}
	if loaded.Inference.ModelPath != "/tmp/model.bin" {
		t.Fatalf("expected model path override")
	}
	if !loaded.Inference.ExecutionGPU {
		t.Fatalf("expected execution_gpu override true")
	}
	if loaded.Appearance.MaxLines != 5 {
		t.Fatalf("expected max_lines override, got %d", loaded.Appearance.MaxLines)
	}
	if loaded.Appearance.ExpireSecs != 12 {
		t.Fatalf("expected expire_secs override, got %d", loaded.Appearance.ExpireSecs)
	}
	if loaded.Locked {
		t.Fatalf("expected locked override false")
	}
}

func TestExpireSecsZeroCoercesToDefault(t *testing.T) {
	cfg := Default()
	cfg.Appearance.ExpireSecs = 0
	data, err := marshalForTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Appearance.ExpireSecs != 8 {
		t.Fatalf("expected coercion to 8, got %d", loaded.Appearance.ExpireSecs)
	}
}

func TestValidateRejectsUnknownOverlayMode(t *testing.T) {
	cfg := Default()
	cfg.OverlayMode = "holographic"
	if err := validate(cfg); err == nil {
		t.Fatal("expected error for unknown overlay_mode")
	}
}

func TestUnknownEngineFallsBackToDefaultRatherThanFailing(t *testing.T) {
	cfg := Default()
	cfg.Inference.Engine = "turbo-whisper-9000"
	data, err := marshalForTest(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	loaded, err := LoadFromBytes(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded.Inference.Engine != Default().Inference.Engine {
		t.Fatalf("expected fallback to default engine, got %v", loaded.Inference.Engine)
	}
}

func marshalForTest(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
