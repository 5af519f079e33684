package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP-shaped status codes,
// kept even though this module serves no HTTP transport: the status
// gives every caller (CLI, tests, a future API) a stable severity class.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors, one per error kind the core can surface.
var (
	ErrConfigurationInvalid  = New("CONFIGURATION_INVALID", http.StatusBadRequest, "configuration object is invalid")
	ErrRequirementInfeasible = New("REQUIREMENT_INFEASIBLE", http.StatusUnprocessableEntity, "no subject applies to any section")
	ErrNoSolution            = New("NO_SOLUTION", http.StatusUnprocessableEntity, "search terminated without a usable solution")
	ErrEventUnresolvable     = New("EVENT_UNRESOLVABLE", http.StatusBadRequest, "event references an unknown entity or day")
	ErrLedgerIO              = New("LEDGER_IO_ERROR", http.StatusInternalServerError, "substitution ledger could not be read or written")
	ErrNotFound              = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrValidation            = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal              = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal error")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
