package model

import (
	"time"
)

// EventType represents the type of conversation event.
type EventType string

const (
	EventTypeToolCall         EventType = "tool_call"
	EventTypeToolError        EventType = "tool_error"
	EventTypeProviderFallback EventType = "provider_fallback"
	EventTypeProviderFailure  EventType = "provider_failure"
	EventTypeGroundingReject  EventType = "grounding_reject"
	EventTypeReset            EventType = "reset"
)

// ConversationEvent represents an event in a conversation.
type ConversationEvent struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Type      EventType      `json:"type"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
