package execer

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cppmedic/internal/platform"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on sh")
	}
}

func TestRunSuccess(t *testing.T) {
	skipOnWindows(t)
	r := New(platform.Current())
	res := r.Shell(context.Background(), "", "echo hello", 5*time.Second)
	require.True(t, res.Success(), "output: %q err: %v", res.Output, res.Err)
	assert.Contains(t, res.Output, "hello")
}

func TestRunNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	r := New(platform.Current())
	res := r.Shell(context.Background(), "", "exit 7", 5*time.Second)
	assert.False(t, res.Success())
	assert.Equal(t, 7, res.ExitCode)
	assert.NoError(t, res.Err)
}

func TestRunMissingBinaryFillsOutput(t *testing.T) {
	r := New(platform.Current())
	res := r.Run(context.Background(), "", []string{"cppmedic-no-such-binary-xyz"}, 5*time.Second)
	assert.False(t, res.Success())
	require.Error(t, res.Err)
	// The error text must be visible to pattern matching.
	assert.NotEmpty(t, res.Output)
}

func TestRunEmptyArgv(t *testing.T) {
	r := New(platform.Current())
	res := r.Run(context.Background(), "", nil, 0)
	assert.False(t, res.Success())
	assert.Error(t, res.Err)
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)
	r := New(platform.Current())
	start := time.Now()
	res := r.Shell(context.Background(), "", "sleep 10", 200*time.Millisecond)
	assert.False(t, res.Success())
	assert.True(t, res.TimedOut())
	assert.Less(t, time.Since(start), 5*time.Second)
}
