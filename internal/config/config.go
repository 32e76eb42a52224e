package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rillaudio/livecaptions/internal/models"
	"gopkg.in/yaml.v3"
)

// TelemetryConfig configures tracing and metrics export.
type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

// HTTPConfig configures the health/ready/metrics listener.
type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// BusConfig configures the internal control-plane NATS bus.
type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
	StoreDir       string   `yaml:"store_dir"`
}

// EventStoreConfig configures the lifecycle event log.
type EventStoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

// AudioSourceConfig is the persisted form of spec.md's AudioSource entity.
type AudioSourceConfig struct {
	Type     string `yaml:"type"` // "system_mix" | "application"
	NodeID   uint32 `yaml:"node_id,omitempty"`
	NodeName string `yaml:"node_name,omitempty"`
}

// AppearanceConfig is the persisted form of spec.md's AppearanceConfig entity.
type AppearanceConfig struct {
	BackgroundColor string  `yaml:"background_color"`
	TextColor       string  `yaml:"text_color"`
	FontSize        float64 `yaml:"font_size"`
	MaxLines        int     `yaml:"max_lines"`
	Width           int     `yaml:"width"`
	ExpireSecs      int     `yaml:"expire_secs"`
}

// AudioConfig configures the capture backend and the ring/resampler sizing.
type AudioConfig struct {
	Backend        string `yaml:"backend"` // "exec" | "mock"
	Command        string `yaml:"command"` // exec backend only, e.g. "parec --raw --channels=2 --rate=48000"
	RingCapacity   int    `yaml:"ring_capacity"`
	SampleRate     int    `yaml:"sample_rate"`
	OutputRate     int    `yaml:"output_sample_rate"`
	ChunkFrames    int    `yaml:"chunk_frames"`
	WindowFrames   int    `yaml:"window_frames"`
}

// InferenceConfig configures the selected engine and its execution backend.
type InferenceConfig struct {
	Engine          string `yaml:"engine"` // "parakeet" | "moonshine" (contract names from original; backend-mapped)
	Backend         string `yaml:"backend"` // "native" | "exec" | "mock"
	ModelPath       string `yaml:"model_path"`
	ModelsDir       string `yaml:"models_dir"`
	Language        string `yaml:"language"`
	ExecutionGPU    bool   `yaml:"execution_gpu"`
	Command         string `yaml:"command"` // exec backend only
}

// NotifyConfig configures the desktop-notification backend.
type NotifyConfig struct {
	Backend string `yaml:"backend"` // "exec" | "mock"
	Command string `yaml:"command"`
}

// Config is the root configuration tree for the live-captions runtime.
type Config struct {
	RuntimeName  string            `yaml:"runtime_name"`
	Environment  string            `yaml:"environment"`
	HTTP         HTTPConfig        `yaml:"http"`
	Telemetry    TelemetryConfig   `yaml:"telemetry"`
	Bus          BusConfig         `yaml:"bus"`
	EventStore   EventStoreConfig  `yaml:"event_store"`
	Audio        AudioConfig       `yaml:"audio"`
	AudioSource  AudioSourceConfig `yaml:"audio_source"`
	Inference    InferenceConfig   `yaml:"inference"`
	Notify       NotifyConfig      `yaml:"notify"`
	OverlayMode  string            `yaml:"overlay_mode"` // "docked" | "floating"
	ScreenEdge   string            `yaml:"screen_edge"`  // "top" | "bottom" | "left" | "right"
	PositionX    int               `yaml:"position_x"`
	PositionY    int               `yaml:"position_y"`
	Locked       bool              `yaml:"locked"`
	Appearance   AppearanceConfig  `yaml:"appearance"`
}

// Default returns the baseline configuration, matching original_source's
// documented defaults (docked/bottom, locked, 3 lines, 8s expiry).
func Default() Config {
	return Config{
		RuntimeName: "live-captiond",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "127.0.0.1",
			Port: 8089,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9092",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4223,
			Servers:        []string{"nats://localhost:4223"},
			ConnectTimeout: 2000,
			StoreDir:       "./data/nats",
		},
		EventStore: EventStoreConfig{
			Path:          "./data/live-captions-events.db",
			RetentionMode: "session",
			RetentionDays: 7,
			MaxSessions:   1000,
		},
		Audio: AudioConfig{
			Backend:      "exec",
			Command:      "parec --raw --channels=2 --rate=48000 --format=float32le",
			RingCapacity: 96000,
			SampleRate:   48000,
			OutputRate:   16000,
			ChunkFrames:  2560,
			WindowFrames: 7680,
		},
		AudioSource: AudioSourceConfig{
			Type: "system_mix",
		},
		Inference: InferenceConfig{
			Engine:    "parakeet",
			Backend:   "native",
			ModelsDir: "",
			Language:  "en",
		},
		Notify: NotifyConfig{
			Backend: "exec",
			Command: "notify-send",
		},
		OverlayMode: "docked",
		ScreenEdge:  "bottom",
		PositionX:   100,
		PositionY:   100,
		Locked:      true,
		Appearance: AppearanceConfig{
			BackgroundColor: "rgba(0,0,0,0.7)",
			TextColor:       "#ffffff",
			FontSize:        16.0,
			MaxLines:        3,
			Width:           640,
			ExpireSecs:      8,
		},
	}
}

// Load reads the configuration from path, applies env overrides and
// validates the result. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				applyEnvOverrides(&cfg)
				coerceEngine(&cfg)
				if verr := validate(cfg); verr != nil {
					return cfg, verr
				}
				return cfg, nil
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
		coerceAppearance(&cfg.Appearance)
	}

	applyEnvOverrides(&cfg)
	coerceEngine(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFromBytes parses configuration from raw YAML, used by the watcher so
// it can hash and parse a single read without re-opening the file. Env
// overrides are re-applied here too, so a hot-reload never drops an
// override that was only ever honored at initial Load time.
func LoadFromBytes(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	coerceAppearance(&cfg.Appearance)
	applyEnvOverrides(&cfg)
	coerceEngine(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// coerceAppearance applies spec.md's "expire_secs == 0 -> default 8" rule.
func coerceAppearance(a *AppearanceConfig) {
	if a.ExpireSecs == 0 {
		a.ExpireSecs = 8
	}
}

// coerceEngine falls back to the default engine variant when the
// configured one isn't a known bundled variant, logging a warning rather
// than failing validation outright: the engine name is a UI/selection
// concern, not a structural one, so an operator typo shouldn't prevent
// the daemon from starting.
func coerceEngine(cfg *Config) {
	switch cfg.Inference.Engine {
	case models.EngineParakeet, models.EngineMoonshine:
		return
	}
	fallback := Default().Inference.Engine
	slog.Default().Warn("unknown inference engine variant, falling back to default",
		slog.String("configured", cfg.Inference.Engine), slog.String("fallback", fallback))
	cfg.Inference.Engine = fallback
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "LIVECAP_RUNTIME_NAME")
	overrideString(&cfg.Environment, "LIVECAP_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "LIVECAP_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "LIVECAP_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "LIVECAP_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "LIVECAP_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "LIVECAP_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "LIVECAP_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "LIVECAP_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "LIVECAP_BUS_PORT")
	overrideStringSlice(&cfg.Bus.Servers, "LIVECAP_BUS_SERVERS")
	overrideString(&cfg.EventStore.Path, "LIVECAP_EVENT_STORE_PATH")
	overrideString(&cfg.EventStore.RetentionMode, "LIVECAP_EVENT_STORE_RETENTION_MODE")
	overrideInt(&cfg.EventStore.RetentionDays, "LIVECAP_EVENT_STORE_RETENTION_DAYS")
	overrideString(&cfg.Audio.Backend, "LIVECAP_AUDIO_BACKEND")
	overrideString(&cfg.Audio.Command, "LIVECAP_AUDIO_COMMAND")
	overrideString(&cfg.Inference.Engine, "LIVECAP_ENGINE")
	overrideString(&cfg.Inference.Backend, "LIVECAP_INFERENCE_BACKEND")
	overrideString(&cfg.Inference.ModelPath, "LIVECAP_MODEL_PATH")
	overrideBool(&cfg.Inference.ExecutionGPU, "LIVECAP_EXECUTION_GPU")
	overrideString(&cfg.Notify.Backend, "LIVECAP_NOTIFY_BACKEND")
	overrideString(&cfg.OverlayMode, "LIVECAP_OVERLAY_MODE")
	overrideBool(&cfg.Locked, "LIVECAP_LOCKED")
	overrideFloat(&cfg.Appearance.FontSize, "LIVECAP_FONT_SIZE")
	overrideInt(&cfg.Appearance.MaxLines, "LIVECAP_MAX_LINES")
	overrideInt(&cfg.Appearance.Width, "LIVECAP_WIDTH")
	overrideInt(&cfg.Appearance.ExpireSecs, "LIVECAP_EXPIRE_SECS")
	coerceAppearance(&cfg.Appearance)
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else if len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when embedded mode is disabled")
	}
	switch cfg.EventStore.RetentionMode {
	case "ephemeral", "session", "persistent":
	default:
		return errors.New("event_store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.OutputRate <= 0 {
		return errors.New("audio.output_sample_rate must be positive")
	}
	if cfg.Audio.ChunkFrames <= 0 {
		return errors.New("audio.chunk_frames must be positive")
	}
	if cfg.Audio.WindowFrames <= 0 {
		return errors.New("audio.window_frames must be positive")
	}
	if cfg.Audio.RingCapacity < cfg.Audio.SampleRate*2 {
		return errors.New("audio.ring_capacity must hold at least one second of stereo audio")
	}
	switch cfg.Audio.Backend {
	case "exec", "mock":
	default:
		return errors.New("audio.backend must be one of exec|mock")
	}
	if cfg.Audio.Backend == "exec" && cfg.Audio.Command == "" {
		return errors.New("audio.command must be set when audio.backend=exec")
	}
	switch cfg.AudioSource.Type {
	case "system_mix", "application":
	default:
		return errors.New("audio_source.type must be one of system_mix|application")
	}
	switch cfg.Inference.Backend {
	case "native", "exec", "mock":
	default:
		return errors.New("inference.backend must be one of native|exec|mock")
	}
	if cfg.Inference.Backend == "exec" && cfg.Inference.Command == "" {
		return errors.New("inference.command must be set when inference.backend=exec")
	}
	switch cfg.Notify.Backend {
	case "exec", "mock":
	default:
		return errors.New("notify.backend must be one of exec|mock")
	}
	switch cfg.OverlayMode {
	case "docked", "floating":
	default:
		return errors.New("overlay_mode must be one of docked|floating")
	}
	switch cfg.ScreenEdge {
	case "top", "bottom", "left", "right":
	default:
		return errors.New("screen_edge must be one of top|bottom|left|right")
	}
	if cfg.Appearance.MaxLines <= 0 {
		return errors.New("appearance.max_lines must be positive")
	}
	if cfg.Appearance.Width <= 0 {
		return errors.New("appearance.width must be positive")
	}
	if cfg.Appearance.FontSize <= 0 {
		return errors.New("appearance.font_size must be positive")
	}
	if cfg.Appearance.ExpireSecs <= 0 {
		return errors.New("appearance.expire_secs must be positive")
	}
	return nil
}
