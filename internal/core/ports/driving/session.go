package driving

import (
	"context"

	"github.com/sl2676/TexQuery/internal/core/domain"
)

// Reply is the session's response to one line of input.
type Reply struct {
	// Output is text to show the user. May be empty.
	Output string

	// Prompt is what to ask for next.
	Prompt string

	// State is the state after handling the input.
	State domain.SessionState

	// Quit is true once the session has ended.
	Quit bool
}

// Session is the interactive query loop's state machine.
// Implementations are not safe for concurrent use.
type Session interface {
	// Start loads the index list and returns the first prompt.
	Start(ctx context.Context) Reply

	// Handle processes one line of input.
	Handle(ctx context.Context, line string) Reply

	// State returns the current state.
	State() domain.SessionState

	// Temperature returns the synthesis temperature in effect.
	Temperature() float64

	// TTSEnabled reports whether answers are spoken.
	TTSEnabled() bool

	// Target returns the selected index, zero while selecting.
	Target() domain.Target
}
