// Package errors provides structured error types for stackscan.
//
// Every error that crosses a package boundary and may end up in front of a
// user carries a machine-readable [Code]. The detection framework uses the
// codes to tell configuration problems (a bad step, a yield cycle) from
// runtime problems (a timed-out tool, an unreachable collector), and the CLI
// uses them to pick exit codes and wording.
//
// # Error Codes
//
//   - INVALID_*: configuration or input validation failures
//   - *_NOT_FOUND: a probed file, executable or record is absent
//   - EXTRACTION_FAILED, CODE_LOCATION_FAILED: a handler or sink degraded
//   - TIMEOUT, NETWORK_ERROR: transient runtime failures
//   - INTERNAL_ERROR: an unexpected fault captured at a boundary
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidStep, "unsupported step kind %q", kind)
//	if errors.Is(err, errors.ErrCodeInvalidStep) {
//	    // refuse to run the pipeline
//	}
//
//	err = errors.Wrap(errors.ErrCodeTimeout, ctxErr, "bazel cquery exceeded %s", d)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Configuration and input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidStep   Code = "INVALID_STEP"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Precondition errors
	ErrCodeFileNotFound         Code = "FILE_NOT_FOUND"
	ErrCodeExecutableNotFound   Code = "EXECUTABLE_NOT_FOUND"
	ErrCodePropertyInsufficient Code = "PROPERTY_INSUFFICIENT"
	ErrCodeNotFound             Code = "NOT_FOUND"

	// Degraded results
	ErrCodeExtractionFailed   Code = "EXTRACTION_FAILED"
	ErrCodeCodeLocationFailed Code = "CODE_LOCATION_FAILED"

	// Transient errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

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
// It walks the whole chain, so an outer code does not hide an inner one.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
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

// GetCode extracts the outermost error code from an error, if available.
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

// IsConfig reports whether err is a configuration error that should stop a
// run before any directory is processed.
func IsConfig(err error) bool {
	switch GetCode(err) {
	case ErrCodeInvalidConfig, ErrCodeInvalidStep, ErrCodeInvalidInput:
		return true
	}
	return false
}
