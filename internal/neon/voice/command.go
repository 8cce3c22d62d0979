package voice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays an audio file.
type Player interface {
	Play(ctx context.Context, path string) error
}

// CommandPlayer plays files with an external program, e.g. ["aplay", "-q"].
// The file path is appended as the last argument.
type CommandPlayer struct {
	Command []string
}

// Play runs the command and waits for it to exit.
func (p CommandPlayer) Play(ctx context.Context, path string) error {
	if len(p.Command) == 0 {
		return errors.New("voice: no player command configured")
	}
	args := append(append([]string{}, p.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.Command[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", p.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// CommandListener records and transcribes with an external program that
// prints the transcript on stdout (a whisper.cpp wrapper, for example).
// Hallucinated transcripts are filtered out.
type CommandListener struct {
	Command []string
}

// Listen runs the command and returns the filtered transcript.
func (l CommandListener) Listen(ctx context.Context) (string, error) {
	if len(l.Command) == 0 {
		return "", ErrDisabled
	}
	cmd := exec.CommandContext(ctx, l.Command[0], l.Command[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("voice: listen: %s: %w: %s", l.Command[0], err, strings.TrimSpace(stderr.String()))
	}
	return FilterTranscript(stdout.String()), nil
}
