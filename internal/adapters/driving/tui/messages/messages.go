// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
)

// SessionStarted carries the session's opening reply.
type SessionStarted struct {
	Reply driving.Reply
}

// ReplyReceived carries the session's reply to one submitted line.
type ReplyReceived struct {
	Input string
	Reply driving.Reply
}

// Quit signals the application should exit.
type Quit struct{}
