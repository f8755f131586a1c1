// Package testutil provides small builders shared by package tests: canned
// todo lists and scripted model fragments.
package testutil

import (
	"fmt"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/model"
)

// Todos builds a todo list with sequential ids t1..tN, all pending.
func Todos(contents ...string) []core.Todo {
	todos := make([]core.Todo, len(contents))
	for i, c := range contents {
		todos[i] = core.Todo{
			ID:      fmt.Sprintf("t%d", i+1),
			Content: c,
			Status:  core.TodoPending,
		}
	}
	return todos
}

// CompleteFirst returns a copy of todos with the first item completed.
func CompleteFirst(todos []core.Todo) []core.Todo {
	out := append([]core.Todo(nil), todos...)
	if len(out) > 0 {
		out[0].Status = core.TodoCompleted
	}
	return out
}

// TextFragments builds a streamed response sequence: one partial per given
// fragment, then a final empty response.
func TextFragments(fragments ...string) []model.Response {
	responses := make([]model.Response, 0, len(fragments)+1)
	for _, f := range fragments {
		responses = append(responses, model.Response{
			Partial: true,
			Content: core.NewAssistantText(f),
		})
	}
	return append(responses, model.Response{
		Content:      core.NewAssistantText(""),
		FinishReason: "stop",
	})
}

// ToolCallResponse builds a final response requesting one tool invocation.
func ToolCallResponse(callID, name, arguments string) model.Response {
	return model.Response{
		Content: core.Content{
			Role: "assistant",
			Parts: []core.Part{core.FunctionCallPart{
				FunctionCall: core.FunctionCall{ID: callID, Name: name, Arguments: arguments},
			}},
		},
		FinishReason: "tool_calls",
	}
}
