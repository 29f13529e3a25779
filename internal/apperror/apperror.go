// Package apperror defines the domain errors shared by the repository,
// service and handler layers.
//
// Lower layers return these values (or wrap them with %w). The handler layer
// is the only place that maps them onto HTTP status codes, so nothing below
// it needs to know about HTTP.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	// ErrRejected marks a well-formed request that could not be carried out
	// because of what the caller sent, such as an email already registered.
	ErrRejected = errors.New("rejected")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Rejected carries a fixed message that is safe to show to the client.
// Whatever caused the refusal is logged by the caller, never put in Message.
func Rejected(message string) *AppError {
	return &AppError{
		Err:     ErrRejected,
		Message: message,
	}
}
