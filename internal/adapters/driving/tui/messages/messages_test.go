package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sl2676/TexQuery/internal/core/domain"
	"github.com/sl2676/TexQuery/internal/core/ports/driving"
)

func TestReplyReceived(t *testing.T) {
	msg := ReplyReceived{
		Input: "quit",
		Reply: driving.Reply{Output: "Exiting...", State: domain.StateQuit, Quit: true},
	}

	assert.Equal(t, "quit", msg.Input)
	assert.True(t, msg.Reply.Quit)
	assert.Equal(t, domain.StateQuit, msg.Reply.State)
}

func TestSessionStarted(t *testing.T) {
	msg := SessionStarted{Reply: driving.Reply{Prompt: "index? "}}

	assert.Equal(t, "index? ", msg.Reply.Prompt)
	assert.False(t, msg.Reply.Quit)
}
