package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentcore/control"
	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/internal/util"
	"github.com/hupe1980/agentcore/logging"
	"github.com/hupe1980/agentcore/plan"
	"github.com/hupe1980/agentcore/session"
	"github.com/hupe1980/agentcore/tool"
	"github.com/hupe1980/agentcore/tool/mcp"
)

// Agent drives the turn-based execution loop over an immutable Config.
// One Agent supports at most one active execution at a time; input messages
// within that execution are processed strictly in submission order.
type Agent struct {
	cfg          Config
	instructions string
	registry     *tool.Registry
	controller   *control.Controller
	logger       logging.Logger

	mu         sync.Mutex
	running    bool
	tracker    *plan.Tracker
	mcpClients []*mcp.Client
}

// New constructs an Agent: it resolves the system prompt template and
// populates the tool registry. Registration conflicts surface here, before
// any execution exists.
func New(cfg Config) (*Agent, error) {
	vars := map[string]any{
		"working_dir": cfg.WorkingDir,
		"model":       cfg.Model.Info().Name,
	}
	for k, v := range cfg.PromptVars {
		vars[k] = v
	}
	instructions, err := util.RenderTemplate(cfg.SystemPrompt, vars)
	if err != nil {
		return nil, &ConfigurationError{Field: "system_prompt", Message: err.Error()}
	}

	registry := tool.NewRegistry(func(o *tool.RegistryOptions) {
		o.DefaultTimeout = cfg.ToolTimeout
		o.Logger = cfg.Logger
	})
	for _, t := range cfg.Tools {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}

	a := &Agent{
		cfg:          cfg,
		instructions: instructions,
		registry:     registry,
		controller:   control.NewController(),
		logger:       cfg.Logger,
	}

	if cfg.EnablePlanTool {
		planTool, err := tool.NewUpdatePlanTool(a.updatePlan)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(planTool); err != nil {
			return nil, err
		}
	}

	return a, nil
}

// updatePlan forwards a model-issued plan to the active execution's tracker.
func (a *Agent) updatePlan(todos []core.Todo) (core.PlanSnapshot, error) {
	a.mu.Lock()
	tracker := a.tracker
	a.mu.Unlock()

	if tracker == nil {
		return core.PlanSnapshot{}, fmt.Errorf("no active execution to receive a plan update")
	}
	return tracker.Update(todos)
}

// ConnectMCP connects the configured MCP servers and registers their
// discovered tools. Call before Execute; the registry is read-only while the
// loop runs.
func (a *Agent) ConnectMCP(ctx context.Context) error {
	for _, serverCfg := range a.cfg.MCPServers {
		client, err := mcp.Connect(ctx, serverCfg, func(o *mcp.ClientOptions) {
			o.Logger = a.logger
		})
		if err != nil {
			return err
		}
		if err := client.RegisterAll(a.registry); err != nil {
			_ = client.Close()
			return err
		}

		a.mu.Lock()
		a.mcpClients = append(a.mcpClients, client)
		a.mu.Unlock()
	}
	return nil
}

// Close tears down MCP server connections. Safe to call after the execution
// has finished.
func (a *Agent) Close() error {
	a.mu.Lock()
	clients := a.mcpClients
	a.mcpClients = nil
	a.mu.Unlock()

	var firstErr error
	for _, c := range clients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Controller returns the control surface of the current (or most recent)
// execution.
func (a *Agent) Controller() *control.Controller {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.controller
}

// Tools returns the names of the registered tools in registration order.
func (a *Agent) Tools() []string { return a.registry.Names() }

// Execute starts the execution loop on its own goroutine.
//
// The loop consumes in until it is closed or a stop command arrives, emits
// ordered output chunks on out (closing it when the execution terminates) and
// publishes plan snapshots to planCh with latest-wins semantics. The returned
// handle reports the terminal state and failure reason.
func (a *Agent) Execute(
	ctx context.Context,
	in <-chan core.InputMessage,
	planCh chan core.PlanSnapshot,
	out chan<- core.OutputChunk,
) (*ExecutionHandle, error) {
	if in == nil || out == nil {
		return nil, &ConfigurationError{Field: "channels", Message: "input and output channels are required"}
	}

	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, fmt.Errorf("execution already in progress")
	}
	a.running = true
	// Fresh control surface per execution; a stop is terminal for the
	// execution, not for the agent.
	ctrl := control.NewController()
	a.controller = ctrl
	a.tracker = plan.NewTracker(planCh, func(o *plan.Options) {
		o.Logger = a.logger
	})
	a.mu.Unlock()

	handle := &ExecutionHandle{
		controller: ctrl,
		done:       make(chan struct{}),
	}

	loop := &loop{
		agent:   a,
		ctrl:    ctrl,
		history: session.NewHistory(func(o *session.HistoryOptions) { o.MaxEntries = a.cfg.MaxHistory }),
		in:      in,
		out:     out,
		planCh:  planCh,
	}

	go func() {
		err := loop.run(ctx)

		a.mu.Lock()
		a.running = false
		a.tracker = nil
		a.mu.Unlock()

		handle.err = err
		ctrl.Close()
		close(handle.done)
	}()

	return handle, nil
}

// ExecutionHandle observes a single execution: its terminal error and current
// state. It does not own the execution; use the Controller to influence it.
type ExecutionHandle struct {
	controller *control.Controller
	done       chan struct{}
	err        error
}

// Wait blocks until the execution reaches a terminal state and returns its
// failure reason, or nil after a clean stop or input exhaustion.
func (h *ExecutionHandle) Wait() error {
	<-h.done
	return h.err
}

// WaitContext is Wait bounded by a context.
func (h *ExecutionHandle) WaitContext(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done exposes completion for select loops.
func (h *ExecutionHandle) Done() <-chan struct{} { return h.done }

// State returns the current execution state.
func (h *ExecutionHandle) State() core.AgentState { return h.controller.State() }

// Err returns the terminal error once Done is closed; nil before that.
func (h *ExecutionHandle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}
