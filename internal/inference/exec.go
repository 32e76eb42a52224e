package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mattn/go-shellwords"
)

type execResponse struct {
	Text string `json:"text"`
}

// ExecEngine shells out to an external ASR process per chunk: it
// WAV-encodes the chunk's mono float32 samples and invokes the
// configured command with "--audio <tmpfile>" appended, decoding a
// one-line JSON {"text": "..."} response from stdout.
type ExecEngine struct {
	cmd        []string
	sampleRate int
	log        *slog.Logger
	mu         sync.Mutex
}

// NewExecEngine parses command with shellwords and constructs an engine
// that drives it once per ProcessChunk call.
func NewExecEngine(command string, sampleRate int, log *slog.Logger) (*ExecEngine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("%w: parse inference command: %v", ErrConstructionFailed, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: inference command is empty", ErrConstructionFailed)
	}
	return &ExecEngine{
		cmd:        args,
		sampleRate: sampleRate,
		log:        log.With(slog.String("component", "inference-exec")),
	}, nil
}

func (e *ExecEngine) SampleRate() int { return e.sampleRate }

func (e *ExecEngine) ProcessChunk(pcm Chunk) (*string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	file, err := os.CreateTemp("", "livecap_chunk_*.wav")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := writeChunkWav(file, pcm, e.sampleRate); err != nil {
		return nil, err
	}

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--audio", file.Name())

	ctx := context.Background()
	command := exec.CommandContext(ctx, e.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return nil, fmt.Errorf("inference command failed: %w: %s", err, stderr.String())
	}

	var resp execResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	if resp.Text == "" {
		return nil, nil
	}
	return &resp.Text, nil
}

func (e *ExecEngine) Close() error { return nil }

func writeChunkWav(file *os.File, pcm Chunk, sampleRate int) error {
	buffer := &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate}}
	samples := make([]int, len(pcm))
	for i, v := range pcm {
		s := int(v * 32767)
		if s > 32767 {
			s = 32767
		} else if s < -32768 {
			s = -32768
		}
		samples[i] = s
	}
	buffer.Data = samples

	enc := wav.NewEncoder(file, sampleRate, 16, 1, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
