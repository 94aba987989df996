// Package errors provides a lightweight structured error type (RstprepError)
// for category-based classification and exit code mapping in the CLI.
package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCategory represents the category of an rstprep error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Document processing errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryRewrite    ErrorCategory = "rewrite"

	// Build and external tool errors
	CategoryBuild    ErrorCategory = "build"
	CategoryExternal ErrorCategory = "external"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// RstprepError is a structured error with category and context
type RstprepError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for RstprepError
type ContextFields map[string]any

// Error implements the error interface
func (e *RstprepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *RstprepError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *RstprepError) WithContext(key string, value any) *RstprepError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new RstprepError
func New(category ErrorCategory, severity ErrorSeverity, message string) *RstprepError {
	return &RstprepError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new RstprepError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *RstprepError {
	return &RstprepError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the first RstprepError in err's chain.
func As(err error) (*RstprepError, bool) {
	var re *RstprepError
	if stdErrors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if re, ok := As(err); ok {
		return re.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not an RstprepError
func GetCategory(err error) ErrorCategory {
	if re, ok := As(err); ok {
		return re.Category
	}
	return CategoryInternal
}
