// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

// ErrMalformedResponse marks a provider reply that cannot drive the conversation.
var ErrMalformedResponse = errors.New("malformed model response")

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	Tools       []ToolDefinition
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role       model.Role       `json:"role"`
	Content    string           `json:"content"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	ToolName   string           `json:"name,omitempty"`
}

// ToolDefinition describes a callable tool. Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Properties returns the "properties" member of the schema.
func (d ToolDefinition) Properties() map[string]any {
	props, _ := d.Parameters["properties"].(map[string]any)
	if props == nil {
		return map[string]any{}
	}
	return props
}

// Required returns the "required" member of the schema.
func (d ToolDefinition) Required() []string {
	switch v := d.Parameters["required"].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	ToolCalls  []model.ToolCall
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Validate rejects replies with neither text nor tool calls, and tool calls
// whose arguments are not a JSON object.
func (r *CompletionResponse) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if r.Content == "" && len(r.ToolCalls) == 0 {
		return fmt.Errorf("%w: no content and no tool calls", ErrMalformedResponse)
	}
	for _, tc := range r.ToolCalls {
		if tc.Name == "" {
			return fmt.Errorf("%w: tool call without a name", ErrMalformedResponse)
		}
		var args map[string]any
		if err := json.Unmarshal(tc.Arguments, &args); err != nil {
			return fmt.Errorf("%w: tool %s arguments: %v", ErrMalformedResponse, tc.Name, err)
		}
	}
	return nil
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// normalizeArguments turns an empty argument payload into "{}".
func normalizeArguments(raw string) json.RawMessage {
	if raw == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}

func providerError(name string, err error) error {
	return &model.ProviderError{Provider: name, Err: err}
}
