// Package model defines the model-backend collaborator boundary: normalized
// request/response structures, the streaming Model interface and a typed error
// distinguishing transient (retryable) from permanent failures. Provider
// adapters live in the openai and anthropic subpackages; ScriptedModel offers
// deterministic behavior for tests and examples.
package model
