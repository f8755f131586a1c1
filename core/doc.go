// Package core defines the immutable value types exchanged across the
// agentcore boundary: input messages, streamed output chunks, plan snapshots,
// tool call requests/results and the agent lifecycle states. Types here carry
// no behavior beyond construction, validation and equality; the execution
// semantics live in the agent, plan, control and tool packages.
package core
