// Package errors provides standardized error handling for the dynamic-read
// engine. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping across the library.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorInvalid represents request-scoped errors caused by bad selection
	// input. They never abort more than the offending request.
	ErrorInvalid ErrorClass = iota
	// ErrorFatal represents schema/configuration errors that indicate a
	// misconfigured application and must abort startup.
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Schema registration and lifecycle errors (startup-time, fatal)
	ErrDuplicateEntity   = errors.New("entity already registered")
	ErrUnknownEntity     = errors.New("entity not registered")
	ErrGraphFrozen       = errors.New("schema graph is frozen")
	ErrDanglingRelation  = errors.New("relation targets an unregistered entity")
	ErrGraphNotFinalized = errors.New("schema graph not finalized")

	// Selection errors (request-time, recoverable)
	ErrMalformedPath = errors.New("malformed selection path")
	ErrUnknownField  = errors.New("unknown field in selection path")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsFatal checks if an error is a schema/configuration error that must
// abort initialization.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorFatal
	}

	return errors.Is(err, ErrDuplicateEntity) ||
		errors.Is(err, ErrUnknownEntity) ||
		errors.Is(err, ErrGraphFrozen) ||
		errors.Is(err, ErrDanglingRelation) ||
		errors.Is(err, ErrGraphNotFinalized)
}

// IsInvalid checks if an error is a recoverable request-scoped selection
// error.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorInvalid
	}

	return errors.Is(err, ErrMalformedPath) ||
		errors.Is(err, ErrUnknownField)
}

// Classify returns the error class for an error. Unclassified errors
// default to fatal so that programming errors are never silently treated
// as bad request input.
func Classify(err error) ErrorClass {
	if IsInvalid(err) {
		return ErrorInvalid
	}
	return ErrorFatal
}

// newClassified creates a new classified error.
// This is an internal helper - use WrapFatal() or WrapInvalid() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapFatal wraps an error as fatal with context
func WrapFatal(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorFatal, wrappedErr, component, method, wrappedErr.Error())
}

// WrapInvalid wraps an error as invalid with context
func WrapInvalid(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorInvalid, wrappedErr, component, method, wrappedErr.Error())
}

// New returns an error that formats as the given text. Provided so callers
// do not need to import both this package and the standard library errors.
func New(text string) error {
	return errors.New(text)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
