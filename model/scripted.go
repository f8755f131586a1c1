package model

import (
	"context"
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// step is one scripted Generate outcome: either an error or a fragment sequence.
type step struct {
	responses []Response
	err       error
}

// ScriptedModel is a deterministic in-memory Model for tests and examples.
// Each Generate call consumes the next scripted step in order; when the
// script is exhausted the last step repeats, which makes it easy to build a
// stub that "always requests another tool call".
type ScriptedModel struct {
	mu    sync.Mutex
	steps []step
	calls int
}

// NewScriptedModel constructs an empty scripted model. A model with no steps
// answers every request with a single final text response echoing the input.
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{}
}

// AddTurn appends a scripted fragment sequence for one Generate call.
func (m *ScriptedModel) AddTurn(responses ...Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{responses: responses})
	return m
}

// AddTextTurn appends a turn streaming the text in two partial fragments
// followed by a final fragment.
func (m *ScriptedModel) AddTextTurn(text string) *ScriptedModel {
	if len(text) < 2 {
		return m.AddTurn(Response{Content: core.NewAssistantText(text), FinishReason: "stop"})
	}
	half := len(text) / 2
	return m.AddTurn(
		Response{Partial: true, Content: core.NewAssistantText(text[:half])},
		Response{Partial: true, Content: core.NewAssistantText(text[half:])},
		Response{Content: core.NewAssistantText(""), FinishReason: "stop"},
	)
}

// AddToolCallTurn appends a turn that requests a single tool invocation.
func (m *ScriptedModel) AddToolCallTurn(toolName, arguments string) *ScriptedModel {
	return m.AddTurn(Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{
				FunctionCall: core.FunctionCall{ID: core.NewID(), Name: toolName, Arguments: arguments},
			}},
		},
		FinishReason: "tool_calls",
	})
}

// AddError appends a scripted failure for one Generate call.
func (m *ScriptedModel) AddError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, step{err: err})
	return m
}

// Calls returns how many times Generate has been invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model by replaying the scripted steps.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	idx := m.calls
	m.calls++
	if idx >= len(m.steps) && len(m.steps) > 0 {
		idx = len(m.steps) - 1 // repeat last step
	}
	var s step
	if len(m.steps) > 0 {
		s = m.steps[idx]
	}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer close(errCh)

		if s.err != nil {
			errCh <- s.err
			return
		}

		responses := s.responses
		if len(responses) == 0 {
			text := "scripted response"
			if n := len(req.Contents); n > 0 {
				text = "scripted response to: " + req.Contents[n-1].Text()
			}
			responses = []Response{{Content: core.NewAssistantText(text), FinishReason: "stop"}}
		}
		if !req.Stream {
			responses = collapse(responses)
		}

		for _, resp := range responses {
			select {
			case <-ctx.Done():
				errCh <- NewPermanentError("generation cancelled", ctx.Err())
				return
			case out <- resp:
			}
		}
	}()

	return out, errCh
}

// collapse folds a streamed fragment sequence into a single final response,
// mirroring what real adapters return for non-streaming requests.
func collapse(responses []Response) []Response {
	var (
		text  string
		final Response
	)
	for _, resp := range responses {
		if resp.Partial {
			text += resp.Content.Text()
			continue
		}
		final = resp
	}

	parts := make([]core.Part, 0, len(final.Content.Parts))
	if combined := text + final.Content.Text(); combined != "" {
		parts = append(parts, core.TextPart{Text: combined})
	}
	for _, p := range final.Content.Parts {
		if _, ok := p.(core.TextPart); !ok {
			parts = append(parts, p)
		}
	}
	final.Content = core.Content{Role: "assistant", Parts: parts}

	return []Response{final}
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "scripted", SupportsTools: true}
}
