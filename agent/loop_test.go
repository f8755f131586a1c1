package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/control"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/internal/testutil"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/tool"
)

// harness wires an agent execution to buffered channels and collects output.
type harness struct {
	agent  *Agent
	handle *ExecutionHandle
	in     chan core.InputMessage
	planCh chan core.PlanSnapshot
	out    chan core.OutputChunk

	mu     sync.Mutex
	chunks []core.OutputChunk
}

func startHarness(t *testing.T, scripted *model.ScriptedModel, optFns ...func(b *Builder)) *harness {
	t.Helper()

	b := NewBuilder().
		Model(scripted).
		MaxTurns(4).
		MaxRetries(2).
		RetryBaseDelay(time.Millisecond).
		Stream(false)
	for _, fn := range optFns {
		fn(b)
	}

	cfg, err := b.Build()
	require.NoError(t, err)

	a, err := New(cfg)
	require.NoError(t, err)

	h := &harness{
		agent:  a,
		in:     make(chan core.InputMessage, 8),
		planCh: make(chan core.PlanSnapshot, 1),
		out:    make(chan core.OutputChunk, 64),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	h.handle, err = a.Execute(ctx, h.in, h.planCh, h.out)
	require.NoError(t, err)

	go func() {
		for chunk := range h.out {
			h.mu.Lock()
			h.chunks = append(h.chunks, chunk)
			h.mu.Unlock()
		}
	}()

	return h
}

func (h *harness) send(t *testing.T, text string) {
	t.Helper()
	msg, err := core.NewInputMessage(text)
	require.NoError(t, err)
	h.in <- msg
}

func (h *harness) collected() []core.OutputChunk {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.OutputChunk(nil), h.chunks...)
}

func (h *harness) waitForFinal(t *testing.T) []core.OutputChunk {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, c := range h.collected() {
			if c.Final {
				return true
			}
		}
		return false
	}, 3*time.Second, 5*time.Millisecond)
	return h.collected()
}

// recordingLogger captures log messages for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingLogger) record(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recordingLogger) Debug(msg string, _ ...any) { r.record(msg) }
func (r *recordingLogger) Info(msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Warn(msg string, _ ...any)  { r.record(msg) }
func (r *recordingLogger) Error(msg string, _ ...any) { r.record(msg) }

func (r *recordingLogger) has(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func TestExecute(t *testing.T) {
	t.Run("rejects a second concurrent execution", func(t *testing.T) {
		h := startHarness(t, model.NewScriptedModel())

		_, err := h.agent.Execute(context.Background(), h.in, nil, make(chan core.OutputChunk))
		require.Error(t, err)

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("closed input channel terminates cleanly", func(t *testing.T) {
		h := startHarness(t, model.NewScriptedModel())

		close(h.in)

		require.NoError(t, h.handle.Wait())
		assert.Equal(t, core.StateStopped, h.handle.State())
	})

	t.Run("emits the final answer with ordered chunks", func(t *testing.T) {
		scripted := model.NewScriptedModel().AddTurn(testutil.TextFragments("hello ", "world")...)
		h := startHarness(t, scripted, func(b *Builder) { b.Stream(true) })

		h.send(t, "hi")
		chunks := h.waitForFinal(t)

		var text string
		for i, c := range chunks {
			text += c.Content
			if c.Final {
				assert.Equal(t, len(chunks)-1, i, "final chunk must be last")
			}
		}
		assert.Equal(t, "hello world", text)

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("turn limit exceeded with an always-tool-calling model", func(t *testing.T) {
		scripted := model.NewScriptedModel().AddTurn(testutil.ToolCallResponse("call-1", "echo", `{"text":"x"}`))
		echo := tool.NewFunctionTool("echo", "echoes", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
		}, func(_ tool.ExecContext, args map[string]any) (string, error) {
			return args["text"].(string), nil
		})

		h := startHarness(t, scripted, func(b *Builder) {
			b.MaxTurns(1).Tools(echo)
		})

		h.send(t, "loop forever")

		err := h.handle.Wait()
		var limitErr *TurnLimitExceededError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, 1, limitErr.Limit)
		assert.Equal(t, 1, scripted.Calls(), "exactly one model turn before failing")
		assert.Equal(t, core.StateFailed, h.handle.State())

		chunks := h.waitForFinal(t)
		last := chunks[len(chunks)-1]
		assert.True(t, last.Final)
		assert.Contains(t, last.Content, "turn limit")
	})

	t.Run("tool results feed the next turn", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddToolCallTurn("greet", `{"name":"Ada"}`).
			AddTextTurn("done")

		var got string
		greet := tool.NewFunctionTool("greet", "greets", map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		}, func(_ tool.ExecContext, args map[string]any) (string, error) {
			got = args["name"].(string)
			return "hello " + got, nil
		})

		h := startHarness(t, scripted, func(b *Builder) { b.Tools(greet) })

		h.send(t, "greet Ada")
		h.waitForFinal(t)

		assert.Equal(t, "Ada", got)
		assert.Equal(t, 2, scripted.Calls())

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("tool failure is fed back, not fatal", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddToolCallTurn("flaky", `{}`).
			AddTextTurn("recovered")

		flaky := tool.NewFunctionTool("flaky", "fails", map[string]any{
			"type": "object", "properties": map[string]any{},
		}, func(_ tool.ExecContext, _ map[string]any) (string, error) {
			return "", errors.New("backend unavailable")
		})

		h := startHarness(t, scripted, func(b *Builder) { b.Tools(flaky) })

		h.send(t, "try it")
		chunks := h.waitForFinal(t)

		assert.Equal(t, "recovered", chunks[len(chunks)-1].Content)

		close(h.in)
		require.NoError(t, h.handle.Wait())
		assert.Equal(t, core.StateStopped, h.handle.State())
	})

	t.Run("unknown tool is surfaced to the model, not fatal", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddToolCallTurn("missing", `{}`).
			AddTextTurn("adapted")

		h := startHarness(t, scripted)

		h.send(t, "go")
		chunks := h.waitForFinal(t)
		assert.Equal(t, "adapted", chunks[len(chunks)-1].Content)

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("transient model errors are retried", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddError(model.NewTransientError("rate limited", nil)).
			AddTextTurn("after retry")

		h := startHarness(t, scripted)

		h.send(t, "hi")
		chunks := h.waitForFinal(t)

		assert.Equal(t, "after retry", chunks[len(chunks)-1].Content)
		assert.Equal(t, 2, scripted.Calls())

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("permanent model error fails the execution", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddError(model.NewPermanentError("invalid api key", nil))

		h := startHarness(t, scripted)

		h.send(t, "hi")

		err := h.handle.Wait()
		var modelErr *model.Error
		require.ErrorAs(t, err, &modelErr)
		assert.False(t, modelErr.Transient)
		assert.Equal(t, core.StateFailed, h.handle.State())
		assert.Equal(t, 1, scripted.Calls(), "permanent errors are not retried")

		chunks := h.waitForFinal(t)
		last := chunks[len(chunks)-1]
		assert.True(t, last.Final)
		assert.Contains(t, last.Content, "invalid api key")
	})

	t.Run("exhausted retries fail with the last transient error", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddError(model.NewTransientError("still rate limited", nil))

		h := startHarness(t, scripted, func(b *Builder) { b.MaxRetries(1) })

		h.send(t, "hi")

		err := h.handle.Wait()
		require.True(t, model.IsTransient(err))
		assert.Equal(t, 2, scripted.Calls())
		assert.Equal(t, core.StateFailed, h.handle.State())
	})
}

func TestControlFlow(t *testing.T) {
	t.Run("stop reaches Stopped in bounded time", func(t *testing.T) {
		h := startHarness(t, model.NewScriptedModel())

		require.NoError(t, h.agent.Controller().Stop())

		done := make(chan error, 1)
		go func() { done <- h.handle.Wait() }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("stop did not terminate the execution in time")
		}
		assert.Equal(t, core.StateStopped, h.handle.State())

		// Terminal: further control calls fail.
		var stoppedErr *control.StoppedError
		require.ErrorAs(t, h.agent.Controller().Pause(), &stoppedErr)
	})

	t.Run("stop emits a final marker and no later chunks", func(t *testing.T) {
		h := startHarness(t, model.NewScriptedModel())

		require.NoError(t, h.agent.Controller().Stop())
		require.NoError(t, h.handle.Wait())

		chunks := h.waitForFinal(t)
		assert.True(t, chunks[len(chunks)-1].Final)

		// No further output after terminal state.
		before := len(h.collected())
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, before, len(h.collected()))
	})

	t.Run("pause defers processing until resume", func(t *testing.T) {
		scripted := model.NewScriptedModel().AddTextTurn("answer")
		h := startHarness(t, scripted)

		require.NoError(t, h.agent.Controller().Pause())
		require.Eventually(t, func() bool {
			return h.handle.State() == core.StatePaused
		}, time.Second, 5*time.Millisecond)

		h.send(t, "question")
		time.Sleep(50 * time.Millisecond)
		assert.Zero(t, scripted.Calls(), "paused loop must not start a turn")

		require.NoError(t, h.agent.Controller().Resume())
		h.waitForFinal(t)
		assert.Equal(t, 1, scripted.Calls())

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("pause then resume is an idempotent round-trip", func(t *testing.T) {
		scripted := model.NewScriptedModel().AddTextTurn("unaffected")
		h := startHarness(t, scripted)

		require.NoError(t, h.agent.Controller().Pause())
		require.NoError(t, h.agent.Controller().Resume())
		// Duplicates are accepted no-ops.
		require.NoError(t, h.agent.Controller().Resume())

		h.send(t, "still works")
		h.waitForFinal(t)
		assert.Equal(t, 1, scripted.Calls())

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("stop with an abandoned output channel still terminates and logs the drop", func(t *testing.T) {
		rec := &recordingLogger{}
		cfg, err := NewBuilder().
			Model(model.NewScriptedModel()).
			Logger(rec).
			Build()
		require.NoError(t, err)

		a, err := New(cfg)
		require.NoError(t, err)

		// Unbuffered output with no consumer: the final marker cannot be
		// delivered, but shutdown must stay bounded.
		in := make(chan core.InputMessage)
		handle, err := a.Execute(context.Background(), in, nil, make(chan core.OutputChunk))
		require.NoError(t, err)

		require.NoError(t, a.Controller().Stop())

		done := make(chan error, 1)
		go func() { done <- handle.Wait() }()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("abandoned consumer wedged the shutdown")
		}
		assert.Equal(t, core.StateStopped, handle.State())
		assert.True(t, rec.has("agent.final_marker_undelivered"), "dropped marker must be logged")
	})

	t.Run("stop while paused unwinds", func(t *testing.T) {
		h := startHarness(t, model.NewScriptedModel())

		require.NoError(t, h.agent.Controller().Pause())
		require.Eventually(t, func() bool {
			return h.handle.State() == core.StatePaused
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, h.agent.Controller().Stop())
		require.NoError(t, h.handle.Wait())
		assert.Equal(t, core.StateStopped, h.handle.State())
	})
}

func TestPlanForwarding(t *testing.T) {
	t.Run("model-issued plan updates reach the plan channel", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddToolCallTurn("update_plan", `{"todos":[{"id":"t1","content":"analyze","status":"in_progress"}]}`).
			AddTextTurn("planned")

		h := startHarness(t, scripted)

		h.send(t, "make a plan")
		h.waitForFinal(t)

		select {
		case snapshot := <-h.planCh:
			assert.Equal(t, int64(1), snapshot.Revision)
			require.Len(t, snapshot.Todos, 1)
			assert.Equal(t, "analyze", snapshot.Todos[0].Content)
			assert.Equal(t, core.TodoInProgress, snapshot.Todos[0].Status)
		case <-time.After(time.Second):
			t.Fatal("no plan snapshot published")
		}

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})

	t.Run("slow plan consumer observes the latest snapshot", func(t *testing.T) {
		scripted := model.NewScriptedModel().
			AddToolCallTurn("update_plan", `{"todos":[{"id":"t1","content":"step one","status":"in_progress"}]}`).
			AddToolCallTurn("update_plan", `{"todos":[{"id":"t1","content":"step one","status":"completed"}]}`).
			AddTextTurn("done")

		h := startHarness(t, scripted)

		h.send(t, "work")
		h.waitForFinal(t)

		// Buffer size 1 and no consumer while updates happened: the stale
		// snapshot was evicted in favor of the newer one.
		select {
		case snapshot := <-h.planCh:
			assert.Equal(t, int64(2), snapshot.Revision)
			assert.Equal(t, core.TodoCompleted, snapshot.Todos[0].Status)
		case <-time.After(time.Second):
			t.Fatal("no plan snapshot published")
		}

		close(h.in)
		require.NoError(t, h.handle.Wait())
	})
}
