package agent

import "fmt"

// ConfigurationError reports an invalid or incomplete configuration detected
// at build time, before any execution state exists.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// TurnLimitExceededError signals that processing a single input needed more
// model turns than the configured bound allows.
type TurnLimitExceededError struct {
	Limit int
}

// Error implements the error interface.
func (e *TurnLimitExceededError) Error() string {
	return fmt.Sprintf("turn limit of %d exceeded without a final answer", e.Limit)
}
