package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

const (
	maxMessageLength   = 4000
	maxSessionIDLength = 256
	maxReferenceLength = 32
)

// ValidateMessageText validates inbound chat text.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("text cannot be empty")
	}
	if len(text) > maxMessageLength {
		return errors.New("text exceeds maximum length")
	}
	if !utf8.ValidString(text) {
		return errors.New("text must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a platform:chat session id.
func ValidateSessionID(id string) error {
	platform, chat, ok := strings.Cut(id, ":")
	if !ok || platform == "" || chat == "" {
		return errors.New("invalid session ID format")
	}
	if len(id) > maxSessionIDLength {
		return errors.New("session ID exceeds maximum length")
	}
	return nil
}

// ValidateReference validates a reservation id or reference code.
func ValidateReference(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("reservation reference cannot be empty")
	}
	if len(ref) > maxReferenceLength {
		return errors.New("reservation reference exceeds maximum length")
	}
	return nil
}
