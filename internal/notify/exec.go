package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/mattn/go-shellwords"
)

// ExecNotifier shells out to a notification command (notify-send on most
// Linux desktops), following the same shellwords-parsed exec pattern used
// to drive the capture and inference subprocesses.
type ExecNotifier struct {
	command string
	log     *slog.Logger
}

// NewExecNotifier constructs a notifier that runs command with the
// notification's summary and body appended as trailing arguments.
func NewExecNotifier(command string, log *slog.Logger) (*ExecNotifier, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse notify command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("notify command is empty")
	}
	return &ExecNotifier{command: command, log: log.With(slog.String("component", "notify-exec"))}, nil
}

// Notify runs the configured command with an expiry timeout and the
// summary/body as arguments.
func (n *ExecNotifier) Notify(summary, body string, timeout time.Duration) error {
	parser := shellwords.NewParser()
	args, err := parser.Parse(n.command)
	if err != nil {
		return fmt.Errorf("parse notify command: %w", err)
	}

	args = append(args, "-t", fmt.Sprintf("%d", timeout.Milliseconds()), summary, body)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run notify command: %w", err)
	}
	return nil
}
