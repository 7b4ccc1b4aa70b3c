// Package llm provides the generation capability behind a conversation.
package llm

import "context"

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of conversation history.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string     // set on RoleTool messages answering a call
	ToolCalls  []ToolCall // set on RoleAssistant messages that invoked tools
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// ToolDef describes a function tool offered to the model.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// Request carries one generation call.
type Request struct {
	System      string
	Messages    []Message
	Tools       []ToolDef
	Temperature float32
}

// Reply is the model's answer: text, tool invocations, or both.
type Reply struct {
	Text      string
	ToolCalls []ToolCall
}

// Provider is the interface for generation services.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Generate produces a reply from conversation history and tools.
	Generate(ctx context.Context, req Request) (*Reply, error)
}
