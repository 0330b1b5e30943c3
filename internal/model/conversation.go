// Package model defines data structures for the reservation assistant.
package model

import (
	"time"
)

// Conversation is the in-memory chat session between one guest and the assistant.
type Conversation struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Messages  []Message `json:"messages"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionKey builds the session identifier for a platform chat.
func SessionKey(platform, chatID string) string {
	if platform == "" {
		platform = "web"
	}
	return platform + ":" + chatID
}

// InboundMessage is a chat message delivered by a messaging platform.
type InboundMessage struct {
	Platform  string    `json:"platform"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyResponse is returned to the platform for an inbound message.
type ReplyResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Language  string `json:"language"`
}

// SessionResponse is the session inspection payload.
type SessionResponse struct {
	Conversation Conversation `json:"conversation"`
	MessageCount int          `json:"message_count"`
}
