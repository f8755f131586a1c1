package control

import (
	"testing"

	"github.com/hupe1980/agentcore/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_PostsCommandsInOrder(t *testing.T) {
	c := NewController()

	require.NoError(t, c.Pause())
	require.NoError(t, c.Resume())
	require.NoError(t, c.Pause())

	assert.Equal(t, CommandPause, <-c.Commands())
	assert.Equal(t, CommandResume, <-c.Commands())
	assert.Equal(t, CommandPause, <-c.Commands())
}

func TestController_StopIsTerminal(t *testing.T) {
	c := NewController()

	require.NoError(t, c.Stop())

	var stoppedErr *StoppedError
	require.ErrorAs(t, c.Pause(), &stoppedErr)
	require.ErrorAs(t, c.Resume(), &stoppedErr)
	require.ErrorAs(t, c.Stop(), &stoppedErr)

	// The stop command itself was still delivered to the loop.
	assert.Equal(t, CommandStop, <-c.Commands())
}

func TestController_PauseResumeIdempotent(t *testing.T) {
	c := NewController()

	// Duplicate commands are accepted; the loop treats them as no-ops.
	require.NoError(t, c.Pause())
	require.NoError(t, c.Pause())
	require.NoError(t, c.Resume())
	require.NoError(t, c.Resume())
}

func TestController_StateObserver(t *testing.T) {
	c := NewController()
	assert.Equal(t, core.StateIdle, c.State())

	c.SetState(core.StateRunning)
	assert.Equal(t, core.StateRunning, c.State())

	c.SetState(core.StateFailed)
	assert.True(t, c.State().Terminal())
}

func TestController_CloseFailsPendingCalls(t *testing.T) {
	c := NewController()
	c.Close()

	var stoppedErr *StoppedError
	assert.ErrorAs(t, c.Pause(), &stoppedErr)
}

func TestCommand_String(t *testing.T) {
	assert.Equal(t, "pause", CommandPause.String())
	assert.Equal(t, "resume", CommandResume.String())
	assert.Equal(t, "stop", CommandStop.String())
}
