package speech

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell utilities")
	}
}

func TestNew(t *testing.T) {
	assert.IsType(t, NullSpeaker{}, New(nil))
	assert.IsType(t, &CommandSpeaker{}, New([]string{"cat"}))
}

func TestNullSpeaker(t *testing.T) {
	var s NullSpeaker
	assert.False(t, s.Available())
	assert.Error(t, s.Speak(context.Background(), "hi"))
}

func TestCommandSpeaker_Unavailable(t *testing.T) {
	s := NewCommandSpeaker([]string{"texquery-no-such-tts-binary"})
	assert.False(t, s.Available())
	assert.Error(t, s.Speak(context.Background(), "hi"))

	assert.False(t, NewCommandSpeaker(nil).Available())
}

func TestCommandSpeaker_PipesTextToStdin(t *testing.T) {
	requireUnix(t)
	out := filepath.Join(t.TempDir(), "spoken.txt")

	s := NewCommandSpeaker([]string{"sh", "-c", "cat > " + out})
	require.True(t, s.Available())
	require.NoError(t, s.Speak(context.Background(), "the answer"))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "the answer", string(data))
}

func TestCommandSpeaker_EmptyTextIsNoop(t *testing.T) {
	requireUnix(t)
	s := NewCommandSpeaker([]string{"false"})
	assert.NoError(t, s.Speak(context.Background(), "  "))
}

func TestCommandSpeaker_CommandFailure(t *testing.T) {
	requireUnix(t)
	s := NewCommandSpeaker([]string{"sh", "-c", "echo broken >&2; exit 3"})

	err := s.Speak(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCommandSpeaker_Cancelled(t *testing.T) {
	requireUnix(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCommandSpeaker([]string{"sleep", "5"}).Speak(ctx, "x")
	assert.Error(t, err)
}
