package tool

import (
	"fmt"

	"github.com/hupe1980/agentcore/core"
)

// PlanUpdater receives the full replacement todo list from an update_plan
// call and returns the resulting snapshot. The plan tracker's Update method
// satisfies this signature.
type PlanUpdater func(todos []core.Todo) (core.PlanSnapshot, error)

// UpdatePlanTool lets the model maintain a structured todo list while it
// works. Each call replaces the whole plan; partial updates are expressed by
// resending the full list with changed statuses.
type UpdatePlanTool struct {
	update PlanUpdater
}

// NewUpdatePlanTool constructs the plan tool around an updater.
func NewUpdatePlanTool(update PlanUpdater) (*UpdatePlanTool, error) {
	if update == nil {
		return nil, fmt.Errorf("plan updater must not be nil")
	}
	return &UpdatePlanTool{update: update}, nil
}

// Name returns the tool identifier.
func (t *UpdatePlanTool) Name() string { return "update_plan" }

// Description returns the tool description shown to the model.
func (t *UpdatePlanTool) Description() string {
	return "Replace the current task plan with a new list of todo items. " +
		"Send the full list on every update, marking finished items completed."
}

// Parameters returns the JSON schema for the todos argument.
func (t *UpdatePlanTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"todos": map[string]any{
				"type":        "array",
				"description": "The complete replacement todo list",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id": map[string]any{
							"type":        "string",
							"description": "Stable item identifier; omit to auto-generate",
						},
						"content": map[string]any{
							"type":        "string",
							"description": "What the item accomplishes",
						},
						"status": map[string]any{
							"type":        "string",
							"description": "Item status",
							"enum":        []string{"pending", "in_progress", "completed"},
						},
					},
					"required": []string{"content", "status"},
				},
			},
		},
		"required": []string{"todos"},
	}
}

// Execute parses the todo list and applies it through the updater.
func (t *UpdatePlanTool) Execute(_ ExecContext, args map[string]any) (string, error) {
	rawTodos, ok := args["todos"].([]any)
	if !ok {
		return "", fmt.Errorf("todos must be an array")
	}

	todos := make([]core.Todo, 0, len(rawTodos))
	for i, raw := range rawTodos {
		item, ok := raw.(map[string]any)
		if !ok {
			return "", fmt.Errorf("todos[%d] must be an object", i)
		}

		content, _ := item["content"].(string)
		if content == "" {
			return "", fmt.Errorf("todos[%d].content must not be empty", i)
		}

		status, _ := item["status"].(string)
		todo := core.Todo{Content: content, Status: core.TodoStatus(status)}
		if id, ok := item["id"].(string); ok && id != "" {
			todo.ID = id
		} else {
			todo.ID = core.NewID()
		}

		todos = append(todos, todo)
	}

	snapshot, err := t.update(todos)
	if err != nil {
		return "", fmt.Errorf("plan update rejected: %w", err)
	}

	return fmt.Sprintf("plan updated to revision %d (%d/%d completed)",
		snapshot.Revision, snapshot.Completed(), len(snapshot.Todos)), nil
}
