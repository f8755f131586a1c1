package core

// AgentState is the lifecycle state of one agent execution. It is owned by
// the controller/loop pair and read-only to external observers.
type AgentState int32

const (
	// StateIdle means execution has not started.
	StateIdle AgentState = iota
	// StateRunning means the loop is processing input or driving a turn.
	StateRunning
	// StatePaused means the loop is blocked awaiting resume or stop.
	StatePaused
	// StateStopping means a stop was observed and the loop is unwinding.
	StateStopping
	// StateStopped is terminal: the loop exited cleanly.
	StateStopped
	// StateFailed is terminal: the loop exited on an unrecoverable error.
	// The failure reason is available from the execution handle.
	StateFailed
)

// String returns the state name for logging and status display.
func (s AgentState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s is a terminal state.
func (s AgentState) Terminal() bool { return s == StateStopped || s == StateFailed }
