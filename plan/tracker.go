package plan

import (
	"sync"
	"time"

	"github.com/hupe1980/agentcore/core"
	"github.com/hupe1980/agentcore/logging"
)

// Options configures a Tracker.
type Options struct {
	// PublishWait bounds how long a publish may block on a full channel after
	// the oldest pending snapshot has been evicted.
	PublishWait time.Duration
	// Logger receives drop warnings. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Tracker owns the plan state for one agent execution. Update replaces the
// whole plan, assigns a monotonically increasing revision and publishes the
// snapshot to the plan channel.
//
// Publish is best-effort: when the channel is full the oldest pending
// snapshot is evicted and the send retried once within a bounded wait.
// Unbounded queuing is deliberately rejected; a consumer observing revision N
// need not have seen N-1.
type Tracker struct {
	mu          sync.Mutex
	revision    int64
	latest      core.PlanSnapshot
	out         chan core.PlanSnapshot
	publishWait time.Duration
	logger      logging.Logger
}

// NewTracker constructs a Tracker publishing to out. The channel should be
// buffered; the tracker both sends to and evicts from it.
func NewTracker(out chan core.PlanSnapshot, optFns ...func(o *Options)) *Tracker {
	opts := Options{
		PublishWait: 50 * time.Millisecond,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Tracker{
		out:         out,
		publishWait: opts.PublishWait,
		logger:      opts.Logger,
	}
}

// Update replaces the entire plan and publishes the resulting snapshot.
// It fails with *core.ValidationError on duplicate ids, empty content or an
// unknown status, leaving the current plan untouched.
func (t *Tracker) Update(todos []core.Todo) (core.PlanSnapshot, error) {
	if err := core.ValidateTodos(todos); err != nil {
		return core.PlanSnapshot{}, err
	}

	t.mu.Lock()
	t.revision++
	snapshot := core.PlanSnapshot{
		Revision: t.revision,
		Todos:    append([]core.Todo(nil), todos...),
	}
	t.latest = snapshot
	t.mu.Unlock()

	t.publish(snapshot)

	return snapshot, nil
}

// Latest returns the most recently accepted snapshot. The zero snapshot
// (revision 0) means no plan has been published yet.
func (t *Tracker) Latest() core.PlanSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest
}

// Revision returns the current revision counter.
func (t *Tracker) Revision() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.revision
}

// publish sends the snapshot without ever blocking the caller indefinitely.
// Full channel: evict the oldest pending snapshot and retry once.
func (t *Tracker) publish(snapshot core.PlanSnapshot) {
	select {
	case t.out <- snapshot:
		return
	default:
	}

	select {
	case stale := <-t.out:
		t.logger.Debug("plan.publish.evicted", "revision", stale.Revision)
	default:
	}

	timer := time.NewTimer(t.publishWait)
	defer timer.Stop()

	select {
	case t.out <- snapshot:
	case <-timer.C:
		t.logger.Warn("plan.publish.dropped", "revision", snapshot.Revision)
	}
}
