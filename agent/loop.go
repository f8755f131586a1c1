package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentcore/control"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/model"
	"github.com/hupe1980/agentcore/session"
	"github.com/hupe1980/agentcore/tool"
)

// errStopped unwinds the loop after a stop command. It never escapes run.
var errStopped = errors.New("execution stopped")

// loop is the single-goroutine execution state machine. All conversation
// state lives here; callers interact only through the channels.
type loop struct {
	agent   *Agent
	ctrl    *control.Controller
	history *session.History
	in      <-chan core.InputMessage
	out     chan<- core.OutputChunk
	planCh  chan core.PlanSnapshot

	turn int
}

// run drives the state machine until the input channel closes, a stop command
// arrives, the context is cancelled or an unrecoverable error occurs. It owns
// the output and plan channels and closes them on return.
func (l *loop) run(ctx context.Context) error {
	ctrl := l.ctrl
	ctrl.SetState(core.StateRunning)

	defer func() {
		close(l.out)
		if l.planCh != nil {
			close(l.planCh)
		}
	}()

	for {
		if stop, err := l.pollCommands(ctx); stop {
			return l.finishStopped(err)
		}

		select {
		case cmd := <-ctrl.Commands():
			if stop, err := l.handleCommand(ctx, cmd); stop {
				return l.finishStopped(err)
			}

		case msg, ok := <-l.in:
			if !ok {
				// Input exhausted: clean shutdown.
				return l.finishStopped(nil)
			}
			if err := l.processInput(ctx, msg); err != nil {
				if errors.Is(err, errStopped) {
					return l.finishStopped(nil)
				}
				return l.finishFailed(err)
			}

		case <-ctx.Done():
			return l.finishStopped(ctx.Err())
		}
	}
}

// pollCommands drains pending commands without blocking. Pause blocks until
// resume or stop.
func (l *loop) pollCommands(ctx context.Context) (bool, error) {
	for {
		select {
		case cmd := <-l.ctrl.Commands():
			if stop, err := l.handleCommand(ctx, cmd); stop {
				return true, err
			}
		case <-ctx.Done():
			return true, ctx.Err()
		default:
			return false, nil
		}
	}
}

// handleCommand applies one control command. It returns true when the loop
// must unwind.
func (l *loop) handleCommand(ctx context.Context, cmd control.Command) (bool, error) {
	switch cmd {
	case control.CommandStop:
		return true, nil
	case control.CommandPause:
		return l.waitResume(ctx)
	default:
		// Resume while running is an accepted no-op.
		return false, nil
	}
}

// waitResume parks the loop in Paused until a resume or stop command arrives.
// Turn and conversation state are untouched, so pause immediately followed by
// resume is a lossless round-trip.
func (l *loop) waitResume(ctx context.Context) (bool, error) {
	ctrl := l.ctrl
	ctrl.SetState(core.StatePaused)
	l.agent.logger.Info("agent.paused", "turn", l.turn)

	defer func() {
		if ctrl.State() == core.StatePaused {
			ctrl.SetState(core.StateRunning)
		}
	}()

	for {
		select {
		case cmd := <-ctrl.Commands():
			switch cmd {
			case control.CommandResume:
				l.agent.logger.Info("agent.resumed", "turn", l.turn)
				return false, nil
			case control.CommandStop:
				return true, nil
			default:
				// Pause while paused is an accepted no-op.
			}
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}

// processInput runs the turn cycle for one input message: drive the model,
// dispatch requested tools, feed results back, repeat until a final text
// answer or the turn limit.
func (l *loop) processInput(ctx context.Context, msg core.InputMessage) error {
	cfg := l.agent.cfg
	l.history.Append(core.NewUserContent(msg))

	for turns := 0; ; {
		if turns >= cfg.MaxTurns {
			return &TurnLimitExceededError{Limit: cfg.MaxTurns}
		}
		turns++
		l.turn++

		started := time.Now()
		resp, err := l.callModelWithRetry(ctx)
		if err != nil {
			return err
		}

		calls := resp.Content.FunctionCalls()
		if al, ok := l.agent.logger.(*logging.AgentLogger); ok {
			al.LogTurn(l.turn, len(calls), time.Since(started))
		}

		if len(calls) == 0 {
			text := resp.Content.Text()
			l.history.Append(core.NewAssistantText(text))

			final := core.OutputChunk{Turn: l.turn, Final: true}
			if !cfg.Stream {
				// Streaming already delivered the text as partial chunks.
				final.Content = text
			}
			return l.emit(ctx, final)
		}

		l.history.Append(resp.Content)
		if err := l.dispatchCalls(ctx, calls); err != nil {
			return err
		}
	}
}

// dispatchCalls executes the requested tools in order, feeding every outcome
// (including failures) back into the conversation. A stop command observed
// between dispatches unwinds without starting further calls; an in-flight
// handler that ignores cancellation finishes on its own and its result is
// discarded with the loop.
func (l *loop) dispatchCalls(ctx context.Context, calls []core.FunctionCall) error {
	cfg := l.agent.cfg

	for _, call := range calls {
		if stop, err := l.pollCommands(ctx); stop {
			if err != nil {
				return err
			}
			return errStopped
		}

		args := map[string]any{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				l.feedback(call, core.ToolExecutionResult{
					Success: false,
					Error:   fmt.Sprintf("malformed tool arguments: %v", err),
				})
				continue
			}
		}

		execCtx := tool.ExecContext{
			Context:    ctx,
			CallID:     call.ID,
			WorkingDir: cfg.WorkingDir,
			Env:        cfg.Env,
			Sandbox:    cfg.Sandbox,
			Timeout:    cfg.ToolTimeout,
			Logger:     l.agent.logger,
		}

		started := time.Now()
		result, err := l.agent.registry.Dispatch(execCtx, core.ToolCallRequest{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: args,
		})
		if err != nil {
			// Contract violations (unknown tool, schema mismatch) are surfaced
			// to the model like any other tool failure; they never end the run.
			result = core.ToolExecutionResult{Success: false, Error: err.Error()}
		}

		if al, ok := l.agent.logger.(*logging.AgentLogger); ok {
			al.LogToolCall(call.Name, time.Since(started), result.Success, err)
		} else {
			l.agent.logger.Debug("agent.tool",
				"tool", call.Name, "success", result.Success, "duration_ms", time.Since(started).Milliseconds())
		}

		l.feedback(call, result)
	}

	return nil
}

// feedback appends a tool outcome to the conversation so the model can adapt.
func (l *loop) feedback(call core.FunctionCall, result core.ToolExecutionResult) {
	fr := core.FunctionResponse{ID: call.ID, Name: call.Name}
	if result.Success {
		fr.Response = result.Output
	} else {
		fr.Error = result.Error
	}
	l.history.Append(core.NewToolResponseContent(fr))
}

// callModelWithRetry submits the conversation to the model, retrying
// transient failures with exponential backoff up to the configured attempt
// count. Permanent failures and exhausted retries propagate.
func (l *loop) callModelWithRetry(ctx context.Context) (model.Response, error) {
	cfg := l.agent.cfg
	req := model.Request{
		Instructions: l.agent.instructions,
		Contents:     l.history.Contents(),
		Tools:        l.agent.registry.Definitions(),
		Stream:       cfg.Stream,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := cfg.RetryBaseDelay << (attempt - 1)
			l.agent.logger.Warn("agent.model.retry",
				"attempt", attempt, "delay_ms", delay.Milliseconds(), "error", lastErr.Error())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return model.Response{}, ctx.Err()
			}
		}

		started := time.Now()
		resp, err := l.callModel(ctx, req)
		if al, ok := l.agent.logger.(*logging.AgentLogger); ok {
			al.LogModelCall(l.agent.cfg.Model.Info().Name, time.Since(started), err)
		}
		if err == nil {
			return resp, nil
		}
		if !model.IsTransient(err) || ctx.Err() != nil {
			return model.Response{}, err
		}
		lastErr = err
	}

	return model.Response{}, lastErr
}

// callModel consumes one generation: partial text fragments are emitted as
// ordered output chunks, the final response is returned.
func (l *loop) callModel(ctx context.Context, req model.Request) (model.Response, error) {
	respCh, errCh := l.agent.cfg.Model.Generate(ctx, req)

	var (
		final  *model.Response
		genErr error
	)

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if text := resp.Content.Text(); text != "" {
					if err := l.emit(ctx, core.OutputChunk{Content: text, Turn: l.turn}); err != nil {
						return model.Response{}, err
					}
				}
				continue
			}
			final = &resp

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil && genErr == nil {
				genErr = err
			}

		case <-ctx.Done():
			return model.Response{}, ctx.Err()
		}
	}

	if genErr != nil {
		return model.Response{}, genErr
	}
	if final == nil {
		return model.Response{}, model.NewPermanentError("model closed the stream without a final response", nil)
	}
	return *final, nil
}

// emit delivers an output chunk. Output is never dropped: a slow consumer
// blocks the loop, only context cancellation breaks the send.
func (l *loop) emit(ctx context.Context, chunk core.OutputChunk) error {
	select {
	case l.out <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finishStopped performs the orderly shutdown path: Stopping, final output
// marker, Stopped. A context error is reported through the handle; a plain
// stop terminates cleanly.
func (l *loop) finishStopped(cause error) error {
	ctrl := l.ctrl
	ctrl.SetState(core.StateStopping)

	// Final marker; bounded so a vanished consumer cannot wedge shutdown.
	select {
	case l.out <- core.OutputChunk{Turn: l.turn, Final: true}:
	case <-time.After(100 * time.Millisecond):
		l.agent.logger.Warn("agent.final_marker_undelivered")
	}

	ctrl.SetState(core.StateStopped)
	l.agent.logger.Info("agent.stopped", "turns", l.turn)

	if cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// finishFailed records the terminal failure and surfaces the reason as the
// final output chunk rather than dropping it.
func (l *loop) finishFailed(err error) error {
	ctrl := l.ctrl
	ctrl.SetState(core.StateFailed)
	l.agent.logger.Error("agent.failed", "turns", l.turn, "error", err.Error())

	select {
	case l.out <- core.OutputChunk{Content: err.Error(), Turn: l.turn, Final: true}:
	case <-time.After(time.Second):
		l.agent.logger.Warn("agent.failure_chunk_undelivered")
	}

	return err
}
