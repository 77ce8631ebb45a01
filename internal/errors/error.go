package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryPreview Category = "preview"
	CategoryStage   Category = "stage"
	CategoryPolicy  Category = "policy"
	CategoryConfig  Category = "config"
	CategoryServer  Category = "server"
	CategoryCLI     Category = "cli"
)

// StageError is a structured error with a registry code and an optional cause.
type StageError struct {
	// Code is a unique error identifier (e.g., "S001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StageError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a StageError with the same code.
func (e *StageError) Is(target error) bool {
	t, ok := target.(*StageError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithDetail adds a detailed explanation to the error.
func (e *StageError) WithDetail(d string) *StageError {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *StageError) WithSuggestion(s string) *StageError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *StageError) Wrap(err error) *StageError {
	e.Wrapped = err
	return e
}

// New creates a StageError from a registered error code.
func New(code string) *StageError {
	template, ok := registry[code]
	if !ok {
		return &StageError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &StageError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new StageError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *StageError {
	return &StageError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a StageError.
func FromError(err error, code string) *StageError {
	if err == nil {
		return nil
	}
	if se, ok := err.(*StageError); ok {
		return se
	}
	return New(code).Wrap(err)
}

// Code returns the registry code of err, or "" if err is not a StageError.
func Code(err error) string {
	for err != nil {
		if se, ok := err.(*StageError); ok {
			return se.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}
