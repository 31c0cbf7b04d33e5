package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every AppError unwraps to exactly one of these so transport
// layers can map them with errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("service unavailable")
)

// AppError is a domain error carrying a client-safe message.
type AppError struct {
	kind    error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.kind, e.Message)
}

// Unwrap returns the error kind.
func (e *AppError) Unwrap() error {
	return e.kind
}

// NewValidationError creates an error for rejected client input.
func NewValidationError(message string) *AppError {
	return &AppError{kind: ErrValidation, Message: message}
}

// NewNotFoundError creates an error for a missing resource.
func NewNotFoundError(resource, id string) *AppError {
	return &AppError{kind: ErrNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// NewUnavailableError creates an error for a collaborator that is not configured or reachable.
func NewUnavailableError(message string) *AppError {
	return &AppError{kind: ErrUnavailable, Message: message}
}

// PublicMessage returns the message that is safe to show to API clients.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var msg interface{ PublicMessage() string }
	if errors.As(err, &msg) {
		return msg.PublicMessage()
	}
	return "internal server error"
}
