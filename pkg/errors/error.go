// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99)
//   - Usage and validation errors (100-199): bad parameters, overrides, missing score
//   - Data errors (200-299): market data and funding loading
//   - Trade lifecycle errors (300-399): state machine misuse
//   - Order errors (400-499): venue failures
//   - Backtest errors (500-599): engine setup and result writing
//   - Optimizer errors (600-699): run execution and result files
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeUnknownParameter, "unknown parameter %q", key)
//	if errors.IsUsage(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is is errors.Is re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As re-exported so callers need a single import.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join is errors.Join re-exported so callers need a single import.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// GetCode extracts the ErrorCode of the first *Error in the chain.
// Returns ErrCodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsUsage reports whether err is a caller mistake rather than a data or runtime failure.
func IsUsage(err error) bool {
	if err == nil {
		return false
	}

	return GetCode(err).Category() == CategoryUsage
}
