package errors

import (
	"fmt"
	"runtime"
)

// Error types for failures that are logged or reported rather than returned
// to query callers.
type ErrorType string

const (
	ErrorTypeParse         ErrorType = "parse"
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeConfiguration ErrorType = "configuration"
	ErrorTypeExport        ErrorType = "export"
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// NewParseError describes a malformed input line.
func NewParseError(operation, message string) *StructuredError {
	return New(ErrorTypeParse, operation, message)
}

// WrapParseError wraps a conversion failure encountered while parsing input.
func WrapParseError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeParse, operation, message)
}

// WrapValidationError wraps a rejected setting. The sentinel stays reachable
// through errors.Is.
func WrapValidationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeValidation, operation, message)
}

// WrapConfigurationError wraps an error as a configuration error
func WrapConfigurationError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeConfiguration, operation, message)
}

// WrapExportError wraps a failure writing results for an external consumer.
func WrapExportError(err error, operation, message string) *StructuredError {
	return Wrap(err, ErrorTypeExport, operation, message)
}
