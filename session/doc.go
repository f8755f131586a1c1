// Package session holds the agent's conversation history between turns. The
// History type is the single owner of the transcript handed to the model on
// each request; a bounded window keeps long-running executions from growing
// requests without limit.
//
// Additional backends (persisting transcripts to disk or a store) can live in
// sub-packages without changing any calling code.
package session
