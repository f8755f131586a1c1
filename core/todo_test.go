package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTodos(t *testing.T) {
	tests := []struct {
		name    string
		todos   []Todo
		wantErr string
	}{
		{
			name:  "valid plan",
			todos: []Todo{{ID: "1", Content: "a", Status: TodoPending}, {ID: "2", Content: "b", Status: TodoCompleted}},
		},
		{
			name:    "duplicate ids",
			todos:   []Todo{{ID: "1", Content: "a", Status: TodoPending}, {ID: "1", Content: "b", Status: TodoPending}},
			wantErr: "duplicate todo id",
		},
		{
			name:    "empty id",
			todos:   []Todo{{Content: "a", Status: TodoPending}},
			wantErr: "id must not be empty",
		},
		{
			name:    "empty content",
			todos:   []Todo{{ID: "1", Status: TodoPending}},
			wantErr: "content must not be empty",
		},
		{
			name:    "unknown status",
			todos:   []Todo{{ID: "1", Content: "a", Status: "blocked"}},
			wantErr: "unknown todo status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTodos(tt.todos)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewTodo(t *testing.T) {
	todo := NewTodo("write tests")
	assert.NotEmpty(t, todo.ID)
	assert.Equal(t, TodoPending, todo.Status)
}

func TestPlanSnapshot_Completed(t *testing.T) {
	snap := PlanSnapshot{Revision: 3, Todos: []Todo{
		{ID: "1", Content: "a", Status: TodoCompleted},
		{ID: "2", Content: "b", Status: TodoInProgress},
		{ID: "3", Content: "c", Status: TodoCompleted},
	}}
	assert.Equal(t, 2, snap.Completed())
}

func TestAgentState_String(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.True(t, StateStopped.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StatePaused.Terminal())
}
