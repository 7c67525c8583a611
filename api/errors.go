// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-ev.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidPriority = errors.New("priority out of range")
	ErrNoBackend       = errors.New("no usable backend")
	ErrForeignEvent    = errors.New("event belongs to another base")
	ErrEventActive     = errors.New("event is active")
	ErrBaseClosed      = errors.New("event base is closed")
	ErrNotSupported    = errors.New("operation not supported")

	// ErrBackendCorrupt is wrapped by a backend whose kernel state can no
	// longer be trusted. The base answers it by switching to a fallback.
	ErrBackendCorrupt = errors.New("backend state corrupted")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeConfiguration: invalid priority index, no backend available.
	// Fatal to the call that reported it.
	ErrCodeConfiguration
	// ErrCodeBackend: add/del/dispatch failure inside a backend. Registry,
	// heap and queues are left intact.
	ErrCodeBackend
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfiguration:
		return "configuration"
	case ErrCodeBackend:
		return "backend"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Code.String() + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap sets the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// ConfigError builds a configuration error around cause.
func ConfigError(message string, cause error) *Error {
	return NewError(ErrCodeConfiguration, message).Wrap(cause)
}

// BackendError builds a backend error for the named backend.
func BackendError(backend, op string, cause error) *Error {
	return NewError(ErrCodeBackend, op).
		WithContext("backend", backend).
		Wrap(cause)
}

// IsCode reports whether err carries a structured error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
