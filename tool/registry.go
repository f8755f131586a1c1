package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/internal/util"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/model"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// DefaultTimeout bounds a single dispatch when the ExecContext carries no
	// timeout of its own. Zero means no bound.
	DefaultTimeout time.Duration
	// Logger receives dispatch telemetry. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry maps tool names to handlers. It is populated at configuration time
// and treated as read-only during execution; Dispatch is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	order   []string
	timeout time.Duration
	logger  logging.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Registry{
		tools:   make(map[string]Tool),
		timeout: opts.DefaultTimeout,
		logger:  opts.Logger,
	}
}

// Register adds a tool, failing with *DuplicateToolError if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return core.NewValidationError("name", "tool name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return &DuplicateToolError{Tool: t.Name()}
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())

	return nil
}

// Get returns a registered tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions exposes the registered tools as model tool definitions in
// registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Dispatch validates and executes a tool call request.
//
// Contract errors (unknown tool, schema violations) are returned as typed
// errors without invoking any handler. Handler failures and panics are
// recovered into a ToolExecutionResult with Success=false so a single tool's
// failure never terminates the agent loop.
func (r *Registry) Dispatch(execCtx ExecContext, req core.ToolCallRequest) (core.ToolExecutionResult, error) {
	if req.Name == "" {
		return core.ToolExecutionResult{}, core.NewValidationError("name", "tool name must not be empty")
	}

	t, ok := r.Get(req.Name)
	if !ok {
		return core.ToolExecutionResult{}, &UnknownToolError{Tool: req.Name}
	}

	args := req.Arguments
	if args == nil {
		args = map[string]any{}
	}

	if violations := util.Violations(args, t.Parameters()); len(violations) > 0 {
		return core.ToolExecutionResult{}, &SchemaValidationError{Tool: req.Name, Violations: violations}
	}

	timeout := execCtx.Timeout
	if timeout == 0 {
		timeout = r.timeout
	}
	if timeout > 0 {
		ctx, cancel := context.WithTimeout(execCtx.Ctx(), timeout)
		defer cancel()
		execCtx.Context = ctx
	}

	start := time.Now()
	output, err := r.invoke(t, execCtx, args)
	r.logger.Debug("tool.dispatch",
		"tool", req.Name,
		"call_id", req.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"success", err == nil,
	)

	if err != nil {
		return core.ToolExecutionResult{Success: false, Error: err.Error()}, nil
	}
	return core.ToolExecutionResult{Success: true, Output: output}, nil
}

// invoke runs the handler with panic recovery.
func (r *Registry) invoke(t Tool, execCtx ExecContext, args map[string]any) (output string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool.panic", "tool", t.Name(), "recover", fmt.Sprintf("%v", rec))
			r.logger.Debug("tool.panic.stack", "stack", string(debug.Stack()))
			err = fmt.Errorf("tool %q panicked: %v", t.Name(), rec)
		}
	}()

	return t.Execute(execCtx, args)
}
