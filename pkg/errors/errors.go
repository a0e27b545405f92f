// Package errors provides structured error types for engrave.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the engine, CLI and HTTP server
//   - Machine-readable error codes for programmatic handling
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Codes follow the failure taxonomy of the layout engine:
//   - INVALID_*: construction-time validity errors (bad meter, bad duration)
//   - TOO_*, UNBEAMABLE: objects that cannot be built from the given notes
//   - TOO_MANY_TICKS: accounting errors; the triggering append did not happen
//   - UNFORMATTED, NO_*: sequencing errors (a value queried before the pass
//     that produces it has run)
//   - TICK_MISMATCH, INCOMPLETE_VOICE: cross-voice consistency errors that
//     abort a formatting pass
//
// # Usage
//
//	err := errors.New(errors.ErrCodeTooManyTicks, "voice overflows %s", total)
//	if errors.Is(err, errors.ErrCodeTooManyTicks) {
//	    // Handle accounting error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidConfig, origErr, "load %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Construction-time validity errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidMeter    Code = "INVALID_METER"
	ErrCodeInvalidDuration Code = "INVALID_DURATION"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeTooFewNotes     Code = "TOO_FEW_NOTES"
	ErrCodeUnbeamable      Code = "UNBEAMABLE"

	// Accounting errors
	ErrCodeTooManyTicks Code = "TOO_MANY_TICKS"

	// Sequencing errors
	ErrCodeUnformatted   Code = "UNFORMATTED"
	ErrCodeNoTickContext Code = "NO_TICK_CONTEXT"
	ErrCodeNoStave       Code = "NO_STAVE"
	ErrCodeNoVoice       Code = "NO_VOICE"
	ErrCodePrecondition  Code = "PRECONDITION"

	// Cross-voice consistency errors
	ErrCodeTickMismatch    Code = "TICK_MISMATCH"
	ErrCodeIncompleteVoice Code = "INCOMPLETE_VOICE"

	// Collaborator errors
	ErrCodeGlyphNotFound Code = "GLYPH_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// IsSequencing reports whether err is a sequencing error: a derived value
// was requested before the pass that produces it ran.
func IsSequencing(err error) bool {
	switch GetCode(err) {
	case ErrCodeUnformatted, ErrCodeNoTickContext, ErrCodeNoStave, ErrCodeNoVoice, ErrCodePrecondition:
		return true
	}
	return false
}
