// Package apperr defines the error kinds shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrUpstream     = errors.New("upstream failure")
)

// Error pairs an error kind with a user-facing message and an optional cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Message: msg} }
func Forbidden(msg string) error    { return &Error{Kind: ErrForbidden, Message: msg} }
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Message: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Message: msg} }

// Upstream wraps a storage or datastore failure. The cause is kept for logs only.
func Upstream(msg string, cause error) error {
	return &Error{Kind: ErrUpstream, Message: msg, Err: cause}
}

// FieldError describes a single rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field errors found at the boundary.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.message()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return e.message() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) message() string {
	if e.Message == "" {
		return "Validation failed"
	}
	return e.Message
}

// Invalid builds a validation error with a single message and no field detail.
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// Fields accumulates field errors and produces a *ValidationError only when non-empty.
type Fields []FieldError

func (f *Fields) Add(field, msg string) {
	*f = append(*f, FieldError{Field: field, Message: msg})
}

func (f Fields) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// Message returns the user-facing message carried by err, if any.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.message()
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return ""
}
