package core

import "fmt"

// TodoStatus is the lifecycle state of a single plan entry. Transitions are
// monotonic in the common case (Pending → InProgress → Completed) but a model
// may revise the content of a Pending item.
type TodoStatus string

const (
	// TodoPending marks a task that has not been started.
	TodoPending TodoStatus = "pending"
	// TodoInProgress marks a task currently being worked on.
	TodoInProgress TodoStatus = "in_progress"
	// TodoCompleted marks a finished task.
	TodoCompleted TodoStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoPending, TodoInProgress, TodoCompleted:
		return true
	}
	return false
}

// Todo is a single plan entry. ID is an opaque token unique within a snapshot.
type Todo struct {
	ID      string     `json:"id"`
	Content string     `json:"content"`
	Status  TodoStatus `json:"status"`
}

// NewTodo constructs a pending Todo with a generated ID.
func NewTodo(content string) Todo {
	return Todo{ID: NewID(), Content: content, Status: TodoPending}
}

// PlanSnapshot is the whole plan published on every mutation. Snapshots are
// totally ordered by Revision; a consumer observing revision N need not have
// seen N-1 (latest wins).
type PlanSnapshot struct {
	Revision int64  `json:"revision"`
	Todos    []Todo `json:"todos"`
}

// Completed returns the number of completed todos.
func (s PlanSnapshot) Completed() int {
	n := 0
	for _, t := range s.Todos {
		if t.Status == TodoCompleted {
			n++
		}
	}
	return n
}

// ValidateTodos checks snapshot invariants: non-empty content, known status
// and no duplicate IDs within one sequence.
func ValidateTodos(todos []Todo) error {
	seen := make(map[string]struct{}, len(todos))
	for i, t := range todos {
		if t.ID == "" {
			return &ValidationError{Field: "id", Value: i, Message: "todo id must not be empty"}
		}
		if _, dup := seen[t.ID]; dup {
			return &ValidationError{Field: "id", Value: t.ID, Message: "duplicate todo id within one plan"}
		}
		seen[t.ID] = struct{}{}
		if t.Content == "" {
			return &ValidationError{Field: "content", Value: t.ID, Message: "todo content must not be empty"}
		}
		if !t.Status.Valid() {
			return &ValidationError{
				Field:   "status",
				Value:   t.Status,
				Message: fmt.Sprintf("unknown todo status %q", string(t.Status)),
			}
		}
	}
	return nil
}
