package driven

import "context"

// Speaker reads text aloud.
type Speaker interface {
	// Speak blocks until the text has been handed to the output device.
	Speak(ctx context.Context, text string) error

	// Available reports whether speech output can be used.
	Available() bool
}
