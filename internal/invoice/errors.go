package invoice

import (
	"errors"
	"fmt"
)

// Common invoice errors
var (
	// ErrInvalidInvoiceFile is returned when an invoice document cannot be decoded.
	ErrInvalidInvoiceFile = errors.New("invalid invoice document")

	// ErrEmptyInvoice is returned when an invoice has no lines.
	ErrEmptyInvoice = errors.New("invoice has no lines")

	// ErrInvalidLine is returned when a line carries values the completor cannot read.
	ErrInvalidLine = errors.New("invalid invoice line")
)

// CompletionError wraps errors with the operation that failed.
type CompletionError struct {
	// Op is the operation that failed (e.g., "DecodeInvoice").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *CompletionError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *CompletionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewCompletionError creates a new CompletionError with the specified operation and underlying error.
func NewCompletionError(op string, err error, details string) *CompletionError {
	return &CompletionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapCompletionError wraps an error as a CompletionError if it isn't already one.
func WrapCompletionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var completionErr *CompletionError
	if errors.As(err, &completionErr) {
		return err // Already wrapped
	}

	return NewCompletionError(op, err, details)
}

// ValidationError represents an invalid field of an invoice document.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidLine.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidLine
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}
