package core

import "github.com/google/uuid"

// NewID generates a unique identifier used for todo items, tool call
// correlation and execution handles.
func NewID() string { return uuid.NewString() }
