package storage

import "fmt"

// ErrInvalidConfig indicates that the storage configuration is invalid.
// This is typically detected during validation before connection attempts.
var ErrInvalidConfig = &Error{
	Code:    "INVALID_CONFIG",
	Message: "invalid storage configuration",
}

// Error represents a storage-related error with a code and message.
// It implements the error interface.
type Error struct {
	// Code is a machine-readable error code (e.g., "INVALID_CONFIG").
	Code string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// WithMessage creates a new Error with an updated message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
	}
}
