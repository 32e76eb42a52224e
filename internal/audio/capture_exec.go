package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"
)

// execReadFrames is the number of interleaved stereo frames read from the
// subprocess per iteration. It stands in for the host graph's RT callback
// period: the subprocess performs the actual I/O, and this goroutine only
// copies a fixed-size read into the ring via a non-blocking acquisition,
// honoring the same real-time contract the ring documents.
const execReadFrames = 480 // 10ms at 48kHz

// ExecBackend streams raw interleaved stereo float32 PCM from an external
// capture process (pw-record or parec) into the ring. The retrieval pack
// contains no PipeWire Go bindings, so this backend drives the host
// audio graph the same way the teacher drives external inference and
// notification processes: a shellwords-parsed command line plus
// os/exec.
type ExecBackend struct {
	command string
	log     *slog.Logger
}

// NewExecBackend constructs a backend that runs command (e.g.
// "parec --raw --channels=2 --rate=48000 --format=float32le") to produce
// raw interleaved stereo float32le samples on stdout.
func NewExecBackend(command string, log *slog.Logger) *ExecBackend {
	return &ExecBackend{command: command, log: log.With(slog.String("component", "audio-capture-exec"))}
}

// Open starts the configured subprocess and streams its stdout into
// write until stop is called.
func (b *ExecBackend) Open(ctx context.Context, source Source, write func([]float32)) (func(), error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(b.command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start capture command: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.stream(stdout, write)
	}()

	stop := func() {
		cancel()
		wg.Wait()
		_ = cmd.Wait()
	}
	return stop, nil
}

func (b *ExecBackend) stream(r io.Reader, write func([]float32)) {
	reader := bufio.NewReaderSize(r, execReadFrames*2*4*4)
	raw := make([]byte, execReadFrames*2*4) // stereo, 4 bytes per float32
	samples := make([]float32, execReadFrames*2)

	for {
		if _, err := io.ReadFull(reader, raw); err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF {
				b.log.Warn("capture stream read failed", slog.String("error", err.Error()))
			}
			return
		}

		for i := range samples {
			bits := binary.LittleEndian.Uint32(raw[i*4:])
			samples[i] = math.Float32frombits(bits)
		}
		write(samples)
	}
}
