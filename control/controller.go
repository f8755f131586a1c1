package control

import (
	"sync"
	"sync/atomic"

	"github.com/hupe1980/agentcore/core"
)

// Command is a control instruction delivered asynchronously to the loop.
type Command int

const (
	// CommandPause asks the loop to block at its next suspension point.
	CommandPause Command = iota
	// CommandResume unblocks a paused loop; a no-op while running.
	CommandResume
	// CommandStop terminates the execution. Terminal.
	CommandStop
)

// String returns the command name for logging.
func (c Command) String() string {
	switch c {
	case CommandPause:
		return "pause"
	case CommandResume:
		return "resume"
	case CommandStop:
		return "stop"
	default:
		return "unknown"
	}
}

// StoppedError is returned from control calls after the execution terminated.
type StoppedError struct{}

// Error implements the error interface.
func (e *StoppedError) Error() string { return "agent execution already stopped" }

// Controller posts control commands to a running execution. It is safe for
// concurrent use by multiple observers; the loop is the single consumer.
// Delivery order across concurrent producers is only guaranteed per call:
// each accepted command is delivered at most once, in acceptance order.
type Controller struct {
	cmds  chan Command
	state atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}
}

// NewController creates a controller with a buffered command channel.
func NewController() *Controller {
	c := &Controller{
		cmds:   make(chan Command, 16),
		closed: make(chan struct{}),
	}
	c.state.Store(int32(core.StateIdle))
	return c
}

// Pause requests a pause at the loop's next suspension point. Pausing an
// already paused execution is a successful no-op.
func (c *Controller) Pause() error { return c.post(CommandPause) }

// Resume requests that a paused loop continue. Resuming a running execution
// is a successful no-op.
func (c *Controller) Resume() error { return c.post(CommandResume) }

// Stop requests termination. Stop is terminal: once accepted, any further
// control call fails with *StoppedError.
func (c *Controller) Stop() error {
	if err := c.post(CommandStop); err != nil {
		return err
	}
	c.Close()
	return nil
}

// State returns the current execution state (read-only observer).
func (c *Controller) State() core.AgentState {
	return core.AgentState(c.state.Load())
}

func (c *Controller) post(cmd Command) error {
	select {
	case <-c.closed:
		return &StoppedError{}
	default:
	}

	select {
	case c.cmds <- cmd:
		return nil
	case <-c.closed:
		return &StoppedError{}
	}
}

// Commands exposes the command stream consumed by the execution loop.
func (c *Controller) Commands() <-chan Command { return c.cmds }

// SetState records the current execution state. Called by the execution loop;
// not intended for external use.
func (c *Controller) SetState(s core.AgentState) { c.state.Store(int32(s)) }

// Close marks the controller terminated so pending and future control calls
// fail fast. Idempotent; invoked when the execution reaches a terminal state.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}
