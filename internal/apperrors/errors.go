// Package apperrors provides the error taxonomy shared by the stores, the
// services and the HTTP layer, with localized user-facing messages.
package apperrors

import (
	"errors"

	"golang.org/x/text/message"
)

// Error is a categorized application error.
type Error struct {
	Code    Code   // Category
	Key     string // Message catalog key for the user-facing text, may be empty
	Args    []any  // Arguments for the catalog message
	Message string // Internal message, also the fallback user text
	Fields  map[string]string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Message == "" {
		return e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// UserMessage renders the message shown to the user with p.
func (e *Error) UserMessage(p *message.Printer) string {
	if e.Key != "" && p != nil {
		return p.Sprintf(e.Key, e.Args...)
	}
	if e.Message != "" {
		return e.Message
	}
	if p != nil {
		return p.Sprintf(KeyUnexpected)
	}
	return "unexpected error"
}

// New creates an error with a code and an internal message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Localized creates an error whose user-facing text comes from the catalog.
func Localized(code Code, key string, args ...any) *Error {
	return &Error{Code: code, Key: key, Args: args, Message: key}
}

// Wrap creates a localized error wrapping cause.
func Wrap(code Code, key string, cause error, args ...any) *Error {
	msg := key
	if cause != nil {
		msg = key + ": " + cause.Error()
	}
	return &Error{Code: code, Key: key, Args: args, Message: msg, Cause: cause}
}

// Validation creates a validation error with per-field details.
func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Key: KeyValidation, Message: "validation failed", Fields: fields}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}
