// Package control exposes cooperative pause/resume/stop for a running agent
// execution. Calls post commands to a channel the execution loop drains at its
// suspension points; a call returns once the command is accepted, not once it
// has taken effect. Effect is observed through the state query or the output
// and plan streams.
package control
