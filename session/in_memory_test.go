package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentcore/core"
)

func TestHistoryAppend(t *testing.T) {
	t.Run("preserves order", func(t *testing.T) {
		h := NewHistory()
		h.Append(core.NewUserContent(core.InputMessage{Text: "first"}))
		h.Append(core.NewAssistantText("second"))

		contents := h.Contents()
		require.Len(t, contents, 2)
		assert.Equal(t, "first", contents[0].Text())
		assert.Equal(t, "second", contents[1].Text())
	})

	t.Run("bounded window evicts oldest first", func(t *testing.T) {
		h := NewHistory(func(o *HistoryOptions) { o.MaxEntries = 3 })
		for i := 0; i < 5; i++ {
			h.Append(core.NewUserContent(core.InputMessage{Text: fmt.Sprintf("msg-%d", i)}))
		}

		contents := h.Contents()
		require.Len(t, contents, 3)
		assert.Equal(t, "msg-2", contents[0].Text())
		assert.Equal(t, "msg-4", contents[2].Text())
	})

	t.Run("returned slice is isolated", func(t *testing.T) {
		h := NewHistory()
		h.Append(core.NewUserContent(core.InputMessage{Text: "original"}))

		contents := h.Contents()
		contents[0] = core.NewUserContent(core.InputMessage{Text: "mutated"})

		assert.Equal(t, "original", h.Contents()[0].Text())
	})
}

func TestHistoryConcurrency(t *testing.T) {
	h := NewHistory(func(o *HistoryOptions) { o.MaxEntries = 100 })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				h.Append(core.NewUserContent(core.InputMessage{Text: fmt.Sprintf("w%d-%d", n, j)}))
				_ = h.Contents()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, h.Len())
}

func TestHistoryClear(t *testing.T) {
	h := NewHistory()
	h.Append(core.NewUserContent(core.InputMessage{Text: "a"}), core.NewAssistantText("b"))
	require.Equal(t, 2, h.Len())

	h.Clear()

	assert.Equal(t, 0, h.Len())
	assert.Empty(t, h.Contents())
}
