package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/capitalize-ai/reservation-assistant/internal/model"
)

func TestSubjects(t *testing.T) {
	assert.Equal(t, "transcript.web:chat-1.msg.user", MessageSubject("web:chat-1", model.RoleUser))
	assert.Equal(t, "transcript.discord:123.event.tool_call", EventSubject("discord:123", model.EventTypeToolCall))
	assert.Equal(t, "transcript.web:a_b.msg.>", SessionFilter("web:a.b"))
}

func TestSubjectToken(t *testing.T) {
	tests := map[string]string{
		"":            "_",
		"web:1":       "web:1",
		"web:a.b c":   "web:a_b_c",
		"web:*>":      "web:__",
		"web:chat\t1": "web:chat_1",
	}
	for in, want := range tests {
		assert.Equal(t, want, subjectToken(in), in)
	}
}
