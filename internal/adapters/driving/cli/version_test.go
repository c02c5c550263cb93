package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "Print the version number", versionCmd.Short)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()
	SetVersion("test-version-1.0.0")

	out, err := run(t, "version")
	defer rootCmd.SetArgs(nil)

	require.NoError(t, err)
	assert.Contains(t, out, "texquery version test-version-1.0.0")
}

func TestVersionCmd_SkipsBootstrap(t *testing.T) {
	SetServices(nil)
	called := false
	SetBootstrap(func(_ context.Context, _ Options) (*Services, error) {
		called = true
		return nil, errors.New("should not run")
	})
	defer SetBootstrap(nil)

	out, err := run(t, "version")
	defer rootCmd.SetArgs(nil)

	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, out, "texquery version")
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	originalVersion := version
	defer func() { version = originalVersion }()

	SetVersion("1.2.3")
	SetVersion("")

	assert.Equal(t, "1.2.3", version)
}
