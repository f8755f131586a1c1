package session

import (
	"sync"

	"github.com/hupe1980/agentcore/core"
)

// HistoryOptions configures a History.
type HistoryOptions struct {
	// MaxEntries bounds the number of retained content entries. When the
	// window is full the oldest entries are evicted first. Zero means
	// unbounded.
	MaxEntries int
}

// History is a volatile conversation transcript. It is safe for concurrent
// access and clones contents on the way out so callers cannot mutate
// internal state.
type History struct {
	mu       sync.RWMutex
	contents []core.Content
	max      int
}

// NewHistory constructs an empty in-memory history.
func NewHistory(optFns ...func(o *HistoryOptions)) *History {
	opts := HistoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &History{max: opts.MaxEntries}
}

// Append adds contents to the transcript, evicting the oldest entries when
// the window is bounded and full.
func (h *History) Append(contents ...core.Content) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.contents = append(h.contents, contents...)
	if h.max > 0 && len(h.contents) > h.max {
		h.contents = h.contents[len(h.contents)-h.max:]
	}
}

// Contents returns a copy of the current transcript in order.
func (h *History) Contents() []core.Content {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]core.Content, len(h.contents))
	copy(out, h.contents)
	return out
}

// Len returns the number of retained entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.contents)
}

// Clear drops the whole transcript.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contents = nil
}
