package core

// ToolCallRequest asks the registry to run a named tool with structured
// arguments. Arguments are validated against the tool's declared schema
// before the handler is invoked.
type ToolCallRequest struct {
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// NewToolCallRequest constructs a request, rejecting an empty tool name.
func NewToolCallRequest(name string, args map[string]any) (ToolCallRequest, error) {
	if name == "" {
		return ToolCallRequest{}, NewValidationError("name", "tool name must not be empty")
	}
	if args == nil {
		args = map[string]any{}
	}
	return ToolCallRequest{ID: NewID(), Name: name, Arguments: args}, nil
}

// ToolExecutionResult is the uniform outcome of a tool dispatch. A handler
// failure is carried in Error with Success=false; it never terminates the
// agent loop.
type ToolExecutionResult struct {
	Success bool   `json:"success"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}
