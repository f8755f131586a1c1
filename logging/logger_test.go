package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*AgentLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{Level: level, Format: "json", Output: &buf})
	return logger, &buf
}

func TestAgentLogger_ContextualFields(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.WithComponent("agent").WithExecution("exec-1").Info("started", "turn", 1)

	out := buf.String()
	assert.Contains(t, out, `"component":"agent"`)
	assert.Contains(t, out, `"execution_id":"exec-1"`)
	assert.Contains(t, out, `"turn":1`)
	assert.Contains(t, out, "started")
}

func TestAgentLogger_WithCopiesDoNotLeak(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	bound := logger.WithComponent("plan")
	bound.Info("bound")
	require.Contains(t, buf.String(), `"component":"plan"`)

	buf.Reset()
	logger.Info("unbound")
	assert.NotContains(t, buf.String(), `"component"`)
}

func TestAgentLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelWarn)

	logger.Info("suppressed")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestAgentLogger_DomainHelpers(t *testing.T) {
	t.Run("tool call failure logs at warn with the error", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogLevelInfo)

		logger.LogToolCall("bash", 25*time.Millisecond, false, errors.New("exit status 1"))

		out := buf.String()
		assert.Contains(t, out, "tool execution failed")
		assert.Contains(t, out, `"tool_name":"bash"`)
		assert.Contains(t, out, `"success":false`)
		assert.Contains(t, out, "exit status 1")
		assert.Contains(t, out, `"level":"WARN"`)
	})

	t.Run("model call success logs latency", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogLevelInfo)

		logger.LogModelCall("gpt-4o", 120*time.Millisecond, nil)

		out := buf.String()
		assert.Contains(t, out, "model call completed")
		assert.Contains(t, out, `"model":"gpt-4o"`)
		assert.Contains(t, out, `"success":true`)
	})

	t.Run("turn metrics carry counts", func(t *testing.T) {
		logger, buf := newBufferedLogger(LogLevelInfo)

		logger.LogTurn(3, 2, 40*time.Millisecond)

		out := buf.String()
		assert.Contains(t, out, "turn completed")
		assert.Contains(t, out, `"turn":3`)
		assert.Contains(t, out, `"tool_calls":2`)
	})
}
