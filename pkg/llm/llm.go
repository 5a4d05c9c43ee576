// Package llm provides interfaces and types for text-completion backend clients.
package llm

import "context"

// CompletionRole represents the role of a message in a conversation.
type CompletionRole string

const (
	// RoleSystem indicates a system message that provides instructions or context.
	RoleSystem CompletionRole = "system"
	// RoleUser indicates a message from the human user.
	RoleUser CompletionRole = "user"
	// RoleAssistant indicates a message from the model.
	RoleAssistant CompletionRole = "assistant"
)

const (
	// DefaultMaxTokens bounds the length of one generated training week.
	DefaultMaxTokens = 2000

	// TemperatureDefault is the default temperature for plan generation.
	// Training weeks benefit from some variety without drifting off-format.
	TemperatureDefault = 0.7
)

// CompletionMessage represents a message in a completion request.
type CompletionMessage struct {
	Content string
	Role    CompletionRole
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Messages    []CompletionMessage
	MaxTokens   int
	Temperature float32
}

// CompletionResponse represents a response from a completion request.
type CompletionResponse struct {
	Content    string // Generated text; may be empty if the backend returned no content
	StopReason string // Why generation stopped, when the provider reports it
}

// Client is the provider-agnostic text-completion interface. Implementations
// must honor ctx cancellation so a hung backend never holds a caller.
type Client interface {
	// Complete performs a single completion request.
	Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error)

	// GetModelName returns the model identifier this client targets.
	GetModelName() string
}
