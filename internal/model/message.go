package model

import (
	"encoding/json"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model to run one operation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Message represents a single conversation turn.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Set on assistant turns that requested tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Set on tool turns.
	ToolCallID string `json:"tool_call_id,omitempty"`
	ToolName   string `json:"tool_name,omitempty"`

	// LLM metadata (assistant turns only)
	Provider  *string `json:"provider,omitempty"`
	Model     *string `json:"model,omitempty"`
	LatencyMs *int64  `json:"latency_ms,omitempty"`

	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasToolCalls reports whether the message carries tool requests.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
