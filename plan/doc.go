// Package plan maintains the agent's ordered task list and publishes a whole
// PlanSnapshot on every mutation. Snapshots are presentation hints, not ground
// truth: the tracker never blocks the execution loop on a slow consumer and
// the most recent snapshot always supersedes stale ones.
package plan
