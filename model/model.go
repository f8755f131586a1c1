package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentcore/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the execution loop.
type Request struct {
	Instructions string           `json:"instructions"`
	Contents     []core.Content   `json:"contents"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) fragment emitted by a streaming model.
// A non-partial response closes the turn; its content may contain text parts,
// function call parts or both.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate must
// close both channels when the turn completes, the context is cancelled or an
// error is emitted; errors surface on the error channel as *Error so callers
// can distinguish transient from permanent failures.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Error is a typed collaborator failure. Transient errors (rate limits,
// timeouts, 5xx) are retried by the execution loop with bounded backoff;
// permanent errors fail the execution.
type Error struct {
	Message   string
	Transient bool
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Cause != nil {
		return fmt.Sprintf("model error (%s): %s: %v", kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("model error (%s): %s", kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// NewTransientError wraps a retryable failure.
func NewTransientError(message string, cause error) *Error {
	return &Error{Message: message, Transient: true, Cause: cause}
}

// NewPermanentError wraps a non-retryable failure.
func NewPermanentError(message string, cause error) *Error {
	return &Error{Message: message, Transient: false, Cause: cause}
}

// IsTransient reports whether err is a retryable model error.
func IsTransient(err error) bool {
	var me *Error
	return errors.As(err, &me) && me.Transient
}
