// Package agentcore provides a channel-driven runtime for tool-using LLM
// agents: a turn-based execution loop, a schema-validating tool registry, a
// revisioned plan tracker and an asynchronous pause/resume/stop control
// surface. Most applications interact with it by:
//  1. Building an immutable agent.Config via agent.NewBuilder()
//  2. Constructing an agent.Agent and starting it with Execute
//  3. Feeding input messages and consuming output chunks and plan snapshots
//     over the returned channels, steering through the Controller
//
// The Query helper below covers the common one-shot case without any channel
// plumbing.
package agentcore

import (
	"context"
	"strings"

	"github.com/hupe1980/agentcore/agent"
	"github.com/hupe1980/agentcore/core"
)

// Version is the library version.
const Version = "0.1.0"

// Query runs a single input through a fresh execution and returns the
// concatenated output text. It blocks until the execution terminates; the
// returned error is the execution's terminal failure, if any.
func Query(ctx context.Context, a *agent.Agent, text string) (string, error) {
	msg, err := core.NewInputMessage(text)
	if err != nil {
		return "", err
	}

	in := make(chan core.InputMessage, 1)
	planCh := make(chan core.PlanSnapshot, 1)
	out := make(chan core.OutputChunk, 64)

	in <- msg
	close(in)

	handle, err := a.Execute(ctx, in, planCh, out)
	if err != nil {
		return "", err
	}

	// Keep the plan channel drained so a plan-updating agent never waits on it.
	go func() {
		for range planCh {
		}
	}()

	var sb strings.Builder
	for chunk := range out {
		sb.WriteString(chunk.Content)
	}

	if err := handle.Wait(); err != nil {
		return sb.String(), err
	}
	return sb.String(), nil
}
