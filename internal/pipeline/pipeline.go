// Package pipeline wires the capture, resampling, inference, caption,
// fallback, notification, and renderer components into the single
// runtime.Pipeline the process host starts and stops.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/rillaudio/livecaptions/internal/audio"
	"github.com/rillaudio/livecaptions/internal/bus"
	"github.com/rillaudio/livecaptions/internal/captions"
	"github.com/rillaudio/livecaptions/internal/config"
	"github.com/rillaudio/livecaptions/internal/eventstore"
	"github.com/rillaudio/livecaptions/internal/fallback"
	"github.com/rillaudio/livecaptions/internal/inference"
	"github.com/rillaudio/livecaptions/internal/models"
	"github.com/rillaudio/livecaptions/internal/natsserver"
	"github.com/rillaudio/livecaptions/internal/notify"
	"github.com/rillaudio/livecaptions/internal/protocol"
	"github.com/rillaudio/livecaptions/internal/renderer"
)

// Pipeline implements runtime.Pipeline: the full live-captions domain
// logic, hosted inside the telemetry/health process host.
type Pipeline struct {
	configPath string
	log        *slog.Logger

	mu  sync.Mutex
	cfg config.Config

	natsServer *natsserver.EmbeddedServer
	busClient  *bus.Client
	events     *eventstore.Store

	ring      *audio.Ring
	dir       *audio.NodeDirectory
	capture   *audio.Capture
	resampler *audio.Resampler
	sink      *audio.InferenceSink
	bridge    *audio.Bridge

	coordinator *inference.Coordinator
	buffer      *captions.Buffer
	pump        *captions.Pump

	fallbackCoord *fallback.Coordinator
	notifier      notify.Notifier

	renderSink   *renderer.Sink
	rendererDone chan struct{}
	watcher      *config.Watcher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs a pipeline from the given configuration, loaded from
// configPath (used for persisting fallback-driven config changes and for
// hot-reload watching).
func New(cfg config.Config, configPath string, log *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		configPath: configPath,
		log:        log.With(slog.String("component", "pipeline")),
	}
}

// Start builds every component and launches the background workers. Any
// failure here is fatal: the audio host being unreachable or the chosen
// engine's model artifacts being absent are both startup-fatal per the
// error-handling design.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	if err := p.startControlPlane(runCtx, cfg); err != nil {
		cancel()
		return err
	}

	p.dir = audio.NewNodeDirectory(p.busClient, p.log)

	var err error
	p.ring = audio.NewRing(cfg.Audio.RingCapacity)
	p.resampler, err = audio.NewResampler(cfg.Audio.SampleRate, cfg.Audio.OutputRate)
	if err != nil {
		cancel()
		return fmt.Errorf("construct resampler: %w", err)
	}

	backend, err := buildCaptureBackend(cfg, p.log)
	if err != nil {
		cancel()
		return err
	}

	p.capture = audio.NewCapture(backend, p.ring, p.dir, p.log)
	initialSource := sourceFromConfig(cfg.AudioSource)
	commands, fallbackCh, err := p.capture.Start(runCtx, initialSource)
	if err != nil {
		cancel()
		return fmt.Errorf("start audio capture: %w", err)
	}
	_ = commands // reserved for a future tray-driven source-switch surface

	p.sink = audio.NewInferenceSink(nil)
	p.bridge = audio.NewBridge(p.ring, p.resampler, p.sink, p.log)

	p.buffer = captions.New(cfg.Appearance.MaxLines, estimateMaxChars(cfg.Appearance), cfg.Appearance.ExpireSecs)
	p.renderSink = renderer.NewSink(8)
	p.pump = captions.NewPump(p.buffer, p.renderSink, p.log, time.Second)

	p.coordinator = inference.NewCoordinator(p.sink, buildEngineFactory(cfg, p.log), p.busClient, p.events, p.log)
	if err := p.coordinator.SwitchEngine(cfg.Inference.Engine, p.pump); err != nil {
		cancel()
		return fmt.Errorf("start inference engine %q: %w", cfg.Inference.Engine, err)
	}

	if p.notifier, err = buildNotifier(cfg, p.log); err != nil {
		cancel()
		return fmt.Errorf("construct notifier: %w", err)
	}
	p.fallbackCoord = fallback.NewCoordinator(p.notifier, fallback.SaveFunc(config.Save), p.configPath, cfg, p.busClient, p.events, p.log)

	p.renderSink.PushMode(renderer.OverlayMode(cfg.OverlayMode))
	p.renderSink.PushLocked(cfg.Locked)
	p.renderSink.PushAppearance(cfg.Appearance)
	p.renderSink.PushVisible(true)

	p.watcher, err = config.NewWatcher(p.configPath, p.onConfigChanged)
	if err != nil {
		p.log.Warn("config watcher failed to start, hot-reload disabled", slog.String("error", err.Error()))
	}

	p.rendererDone = make(chan struct{})
	go p.runRenderer(p.rendererDone)

	p.wg.Add(3)
	go func() { defer p.wg.Done(); p.bridge.Run(runCtx) }()
	go func() { defer p.wg.Done(); p.pump.Run(runCtx) }()
	go func() { defer p.wg.Done(); p.fallbackCoord.Run(runCtx, fallbackCh) }()

	p.log.Info("pipeline started", slog.String("engine", cfg.Inference.Engine), slog.String("audio_backend", cfg.Audio.Backend))
	return nil
}

// Stop tears down the pipeline in roughly reverse dependency order. It
// cancels the shared run context, which the capture worker observes to
// disconnect and exit, then waits for the remaining workers.
func (p *Pipeline) Stop(ctx context.Context) error {
	if p.watcher != nil {
		p.watcher.Stop()
	}
	if p.cancel != nil {
		p.cancel()
	}
	if p.capture != nil {
		select {
		case <-p.capture.Done():
		case <-time.After(2 * time.Second):
			p.log.Warn("capture worker did not terminate promptly")
		}
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		p.log.Warn("pipeline shutdown timed out waiting for workers")
	}

	// Only close the sink once the pump (its sole caption producer) has
	// confirmed it returned above: closing while a PushCaption send is
	// still in flight would panic.
	p.renderSink.PushQuit()
	p.renderSink.Close()
	select {
	case <-p.rendererDone:
	case <-time.After(2 * time.Second):
		p.log.Warn("renderer forwarder did not terminate promptly")
	}

	if p.events != nil {
		if err := p.events.Close(); err != nil {
			p.log.Warn("event store close failed", slog.String("error", err.Error()))
		}
	}
	p.busClient.Close()
	if p.natsServer != nil {
		p.natsServer.Shutdown()
	}
	return nil
}

// CurrentSource exposes the tray-facing snapshot accessor.
func (p *Pipeline) CurrentSource() audio.Source {
	if p.capture == nil {
		return audio.SystemMix()
	}
	return p.capture.CurrentSource()
}

func (p *Pipeline) startControlPlane(ctx context.Context, cfg config.Config) error {
	var err error
	p.natsServer, err = natsserver.Start(cfg.Bus, p.log)
	if err != nil {
		return fmt.Errorf("start embedded control bus: %w", err)
	}

	if cfg.Bus.Embedded || len(cfg.Bus.Servers) > 0 {
		p.busClient, err = bus.Connect(ctx, cfg.Bus, p.log)
		if err != nil {
			p.log.Warn("control bus connection failed, continuing without it", slog.String("error", err.Error()))
			p.busClient = nil
		}
	}

	p.events, err = eventstore.Open(ctx, cfg.EventStore, p.log)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	return nil
}

// runRenderer is the sole consumer of the renderer sink's two channels. The
// external overlay process has no in-process handle to drain them directly,
// so this forwards every command and caption fragment onto the control bus
// as it arrives, in order, until both channels close. It never buffers: a
// caption fragment is forwarded before the next one is read, preserving the
// strict ordering the caption stream requires.
func (p *Pipeline) runRenderer(done chan<- struct{}) {
	defer close(done)

	commands := p.renderSink.Commands
	captions := p.renderSink.Captions
	for commands != nil || captions != nil {
		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			p.publishRenderCommand(cmd)
		case text, ok := <-captions:
			if !ok {
				captions = nil
				continue
			}
			p.publishCaption(text)
		}
	}
}

func (p *Pipeline) publishRenderCommand(cmd renderer.Command) {
	if p.busClient == nil {
		return
	}
	p.busClient.PublishJSON(protocol.SubjectRenderCommand, protocol.RenderCommandEvent{
		Kind:            cmd.Kind.String(),
		Visible:         cmd.Visible,
		Mode:            string(cmd.Mode),
		Locked:          cmd.Locked,
		BackgroundColor: cmd.Appearance.BackgroundColor,
		TextColor:       cmd.Appearance.TextColor,
		FontSize:        cmd.Appearance.FontSize,
		MaxLines:        cmd.Appearance.MaxLines,
		Width:           cmd.Appearance.Width,
		ExpireSecs:      cmd.Appearance.ExpireSecs,
		Caption:         cmd.Caption,
		Timestamp:       time.Now().UTC(),
	})
}

func (p *Pipeline) publishCaption(text string) {
	if p.busClient == nil {
		return
	}
	p.busClient.PublishJSON(protocol.SubjectCaptionUpdated, protocol.CaptionUpdatedEvent{
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

func (p *Pipeline) onConfigChanged(old, newCfg config.Config) {
	p.mu.Lock()
	p.cfg = newCfg
	p.mu.Unlock()

	if !config.AppearanceChanged(old, newCfg) {
		return
	}

	p.buffer.UpdateConfig(estimateMaxChars(newCfg.Appearance), newCfg.Appearance.ExpireSecs)
	p.renderSink.PushAppearance(newCfg.Appearance)

	if p.events != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := p.events.Append(ctx, eventstore.EventConfigReloaded, "appearance updated"); err != nil {
			p.log.Warn("failed to record config-reload event", slog.String("error", err.Error()))
		}
	}
	if p.busClient != nil {
		p.busClient.PublishJSON(protocol.SubjectConfigReloaded, protocol.ConfigReloadedEvent{
			MaxLines:   newCfg.Appearance.MaxLines,
			Width:      newCfg.Appearance.Width,
			FontSize:   newCfg.Appearance.FontSize,
			ExpireSecs: newCfg.Appearance.ExpireSecs,
			Timestamp:  time.Now().UTC(),
		})
	}
}

func sourceFromConfig(a config.AudioSourceConfig) audio.Source {
	if a.Type == "application" {
		return audio.Application(a.NodeID, a.NodeName)
	}
	return audio.SystemMix()
}

// estimateMaxChars derives the caption buffer's character budget from the
// renderer's pixel width and font size: usable width (pixel width minus a
// fixed 24px chrome/margin allowance) divided by an average glyph width of
// roughly 0.6x the font size, then scaled by 0.85 for visual padding on
// proportional fonts.
func estimateMaxChars(a config.AppearanceConfig) int {
	if a.FontSize <= 0 {
		return a.Width / 10
	}
	usableWidth := float64(a.Width - 24)
	if usableWidth < 100 {
		usableWidth = 100
	}
	glyphWidth := a.FontSize * 0.6
	chars := int(usableWidth / glyphWidth * 0.85)
	if chars < 8 {
		chars = 8
	}
	return chars
}

func buildCaptureBackend(cfg config.Config, log *slog.Logger) (audio.Backend, error) {
	switch cfg.Audio.Backend {
	case "mock":
		return audio.NewMockBackend(), nil
	case "exec":
		return audio.NewExecBackend(cfg.Audio.Command, log), nil
	default:
		return nil, fmt.Errorf("%w: unknown audio backend %q", audio.ErrUnavailableHost, cfg.Audio.Backend)
	}
}

func buildNotifier(cfg config.Config, log *slog.Logger) (notify.Notifier, error) {
	switch cfg.Notify.Backend {
	case "mock":
		return notify.NewMockNotifier(nil), nil
	case "exec":
		return notify.NewExecNotifier(cfg.Notify.Command, log)
	default:
		return nil, fmt.Errorf("unknown notify backend %q", cfg.Notify.Backend)
	}
}

func buildEngineFactory(cfg config.Config, log *slog.Logger) inference.Factory {
	return func(variant string) (inference.Engine, error) {
		switch cfg.Inference.Backend {
		case "mock":
			return inference.NewMockEngine(cfg.Audio.OutputRate), nil
		case "exec":
			return inference.NewExecEngine(cfg.Inference.Command, cfg.Audio.OutputRate, log)
		case "native":
			modelPath := cfg.Inference.ModelPath
			if modelPath == "" {
				return nil, fmt.Errorf("%w: inference.model_path is required for the native backend", inference.ErrConstructionFailed)
			}
			if !models.Present(filepath.Dir(modelPath), filepath.Base(modelPath)) {
				return nil, fmt.Errorf("%w: model file %q not found", inference.ErrConstructionFailed, modelPath)
			}
			if cfg.Inference.ModelsDir != "" && !models.EngineReady(cfg.Inference.ModelsDir, variant) {
				return nil, fmt.Errorf("%w: model files for engine %q not found under %s",
					inference.ErrConstructionFailed, variant, models.Dir(cfg.Inference.ModelsDir, variant))
			}
			return inference.NewNativeEngine(modelPath, cfg.Inference.Language, cfg.Inference.ExecutionGPU, log)
		default:
			return nil, fmt.Errorf("%w: unknown inference backend %q", inference.ErrConstructionFailed, cfg.Inference.Backend)
		}
	}
}
