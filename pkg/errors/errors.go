// Package errors provides structured error types for depgraph.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so that the CLI and the HTTP layer can decide how to present it
// without string matching:
//
//   - INVALID_*: input validation failures (package names, version ranges)
//   - *_NOT_FOUND: the registry does not know the requested package
//   - NETWORK_ERROR, TIMEOUT: transport problems and exhausted budgets
//   - INTERNAL_ERROR: anything unexpected
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidPackage, "invalid package name: %s", name)
//	if errors.Is(err, errors.ErrCodeInvalidPackage) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRootNotFound, origErr, "fetch %s@%s", name, version)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidPackage      Code = "INVALID_PACKAGE"
	ErrCodeInvalidVersionRange Code = "INVALID_VERSION_RANGE"
	ErrCodeInvalidConfig       Code = "INVALID_CONFIG"

	// Resource not found errors
	ErrCodePackageNotFound Code = "PACKAGE_NOT_FOUND"
	ErrCodeRootNotFound    Code = "ROOT_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Input reports whether c describes a bad request (an INVALID_* code)
// rather than a registry, transport or internal failure.
func (c Code) Input() bool {
	return strings.HasPrefix(string(c), "INVALID_")
}

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error renders "CODE: message[: cause]".
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with a formatted message and no cause.
func New(code Code, format string, args ...any) *Error {
	return Wrap(code, nil, format, args...)
}

// Wrap creates an Error whose message describes what failed (typically
// "fetch name@version") on top of cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// outermost returns the first *Error in err's chain, or nil.
func outermost(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Is reports whether the outermost *Error in err's chain has code. Inner
// codes are ignored: a ROOT_NOT_FOUND wrapping a TIMEOUT is ROOT_NOT_FOUND.
func Is(err error, code Code) bool {
	e := outermost(err)
	return e != nil && e.Code == code
}

// GetCode returns the outermost code in err's chain, or "".
func GetCode(err error) Code {
	if e := outermost(err); e != nil {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without code or
// cause, or err.Error() for uncoded errors.
func UserMessage(err error) string {
	if e := outermost(err); e != nil {
		return e.Message
	}
	return err.Error()
}
