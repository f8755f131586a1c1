// Package tool implements the function/tool calling subsystem that lets the
// agent invoke structured capabilities (shell commands, filesystem access,
// searches, custom functions) with schema validated arguments and uniform
// error handling. A single tool's internal failure never terminates the agent
// loop; it is captured in the execution result and surfaced to the model.
package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentcore/internal/util"
	"github.com/hupe1980/agentcore/logging"
)

// SandboxMode constrains what side effects tool handlers may perform.
type SandboxMode int

const (
	// SandboxWorkspaceWrite allows writes inside the working directory.
	SandboxWorkspaceWrite SandboxMode = iota
	// SandboxReadOnly forbids mutating operations (writes, shell commands).
	SandboxReadOnly
)

// String returns the sandbox mode name.
func (m SandboxMode) String() string {
	if m == SandboxReadOnly {
		return "read-only"
	}
	return "workspace-write"
}

// ExecContext carries the execution environment handed to tool handlers:
// cancellation, working directory, environment overrides, sandbox policy and
// an optional per-call timeout. Handlers must honor Context cancellation and
// be safely abandonable on stop.
type ExecContext struct {
	Context    context.Context
	CallID     string
	WorkingDir string
	Env        map[string]string
	Sandbox    SandboxMode
	Timeout    time.Duration
	Logger     logging.Logger
}

// Ctx returns the ambient context, defaulting to context.Background.
func (c ExecContext) Ctx() context.Context {
	if c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// Log returns the logger, defaulting to NoOpLogger.
func (c ExecContext) Log() logging.Logger {
	if c.Logger == nil {
		return logging.NoOpLogger{}
	}
	return c.Logger
}

// Tool defines the interface for extending agent capabilities.
//
// Implementations should provide clear names and descriptions, define a
// proper JSON schema for parameters, handle errors gracefully and be
// thread-safe: the registry may dispatch the same tool concurrently.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description returns a human-readable description provided to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Execute runs the tool with already-validated arguments. The returned
	// string is the tool output fed back into the conversation.
	Execute(execCtx ExecContext, args map[string]any) (string, error)
}

// ValidationError reports a single parameter schema violation.
type ValidationError = util.ValidationError

// DuplicateToolError signals a second registration under an existing name.
type DuplicateToolError struct {
	Tool string
}

// Error implements the error interface.
func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Tool)
}

// UnknownToolError signals a dispatch against an unregistered name.
type UnknownToolError struct {
	Tool string
}

// Error implements the error interface.
func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Tool)
}

// SchemaValidationError reports parameters violating a tool's declared
// schema. Violations lists every offending field; the handler was not invoked.
type SchemaValidationError struct {
	Tool       string
	Violations []*ValidationError
}

// Error implements the error interface.
func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid parameters for tool %q: fields [%s]", e.Tool, strings.Join(e.Fields(), ", "))
}

// Fields returns the names of the violating fields in order.
func (e *SchemaValidationError) Fields() []string {
	fields := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		fields[i] = v.Field
	}
	return fields
}
