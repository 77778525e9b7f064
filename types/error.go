package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

const (
	// ErrConfiguration indicates that no executor could be resolved for a step,
	// or that workflow options are inconsistent.
	ErrConfiguration ErrorCode = "CONFIGURATION"
	// ErrDefinition indicates an invalid workflow definition detected at
	// construction time.
	ErrDefinition ErrorCode = "DEFINITION"
	// ErrRoutingDeadEnd indicates a decision key with no matching route.
	// Only surfaced when strict routing is enabled.
	ErrRoutingDeadEnd ErrorCode = "ROUTING_DEAD_END"
	// ErrStepExecution indicates that the executor call failed.
	ErrStepExecution ErrorCode = "STEP_EXECUTION"
	// ErrValidationRejected indicates that the hierarchical manager rejected a
	// step's output.
	ErrValidationRejected ErrorCode = "VALIDATION_REJECTED"
	// ErrStateType indicates a state store operation applied to a value of an
	// incompatible type, e.g. Append on a non-list entry.
	ErrStateType ErrorCode = "STATE_TYPE"
)

// Error is a structured error with a stable code, an optional step name, and
// an optional wrapped cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Step    string    `json:"step,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg = fmt.Sprintf("step %q: %s", e.Step, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches the name of the step the error occurred in.
func (e *Error) WithStep(step string) *Error {
	e.Step = step
	return e
}

// WithCause adds a wrapped cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// AsError extracts a *Error from err's chain, or nil if there is none.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	if e := AsError(err); e != nil {
		return e.Code == code
	}
	return false
}

// CodeOf extracts the error code from an error, or "" for foreign errors.
func CodeOf(err error) ErrorCode {
	if e := AsError(err); e != nil {
		return e.Code
	}
	return ""
}
