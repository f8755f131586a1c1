// Package agent wires the configuration, tool registry, plan tracker and
// control surface into a single turn-based execution loop.
//
// Callers build an immutable Config through the staged Builder, construct an
// Agent and start it with Execute, which returns an ExecutionHandle. All
// interaction with the running loop goes through channels: input messages in,
// plan snapshots and output chunks out, plus the asynchronous command channel
// behind the Controller. The loop is the only goroutine touching conversation
// state, so no external locking is required.
package agent
