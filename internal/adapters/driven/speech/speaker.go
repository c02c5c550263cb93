// Package speech provides Speaker adapters that hand answer text to an
// external text-to-speech program.
package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sl2676/TexQuery/internal/core/ports/driven"
)

// Ensure the speakers implement the interface.
var (
	_ driven.Speaker = (*CommandSpeaker)(nil)
	_ driven.Speaker = NullSpeaker{}
)

// CommandSpeaker pipes text to a command's standard input, e.g.
// ["espeak", "--stdin"] or ["say"].
type CommandSpeaker struct {
	argv []string
	path string
}

// NewCommandSpeaker resolves argv[0] on PATH. An empty argv or a missing
// program yields a speaker that reports itself unavailable.
func NewCommandSpeaker(argv []string) *CommandSpeaker {
	s := &CommandSpeaker{argv: argv}
	if len(argv) > 0 {
		if path, err := exec.LookPath(argv[0]); err == nil {
			s.path = path
		}
	}
	return s
}

// Available reports whether the program was found.
func (s *CommandSpeaker) Available() bool {
	return s.path != ""
}

// Speak runs the command once and waits for it to exit.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	if !s.Available() {
		return errors.New("speech: no text-to-speech command available")
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	cmd := exec.CommandContext(ctx, s.path, s.argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("speech: %s: %w: %s", s.argv[0], err, msg)
		}
		return fmt.Errorf("speech: %s: %w", s.argv[0], err)
	}
	return nil
}

// NullSpeaker is never available.
type NullSpeaker struct{}

// Speak always fails.
func (NullSpeaker) Speak(context.Context, string) error {
	return errors.New("speech: text-to-speech is not configured")
}

// Available returns false.
func (NullSpeaker) Available() bool { return false }

// New returns a CommandSpeaker for argv, or NullSpeaker when argv is empty.
func New(argv []string) driven.Speaker {
	if len(argv) == 0 {
		return NullSpeaker{}
	}
	return NewCommandSpeaker(argv)
}
