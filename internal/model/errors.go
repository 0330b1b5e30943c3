package model

import (
	"errors"
	"fmt"
)

// Store-level sentinel errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("room is not available for the requested dates")
	ErrAlreadyCancelled = errors.New("reservation is already cancelled")
	ErrCapacity         = errors.New("guest count exceeds room capacity")
)

// ErrorKind classifies tool failures reported back to the model.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

// ToolError is a recoverable tool failure. The model receives it as structured
// data so it can ask the guest a corrective follow-up question.
type ToolError struct {
	Kind   ErrorKind `json:"kind"`
	Field  string    `json:"field,omitempty"`
	Reason string    `json:"reason"`
	Cause  error     `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}

// NewValidationError reports a missing or malformed argument.
func NewValidationError(field, reason string) *ToolError {
	return &ToolError{Kind: KindValidation, Field: field, Reason: reason}
}

// NewNotFoundError reports an unknown id or reference.
func NewNotFoundError(field, reason string) *ToolError {
	return &ToolError{Kind: KindNotFound, Field: field, Reason: reason, Cause: ErrNotFound}
}

// NewConflictError reports an availability violation.
func NewConflictError(reason string, cause error) *ToolError {
	return &ToolError{Kind: KindConflict, Reason: reason, Cause: cause}
}

// IsKind reports whether err is a ToolError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *ToolError
	return errors.As(err, &te) && te.Kind == kind
}

// ProviderError wraps a network, timeout or malformed-response failure of an LLM provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
