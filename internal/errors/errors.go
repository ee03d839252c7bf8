// Package errors provides a lightweight structured error type for
// category-based classification and CLI exit code mapping.
package errors

import (
	"fmt"
)

// Category classifies an error by the subsystem it came from.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryValidation Category = "validation"
	CategoryToolchain  Category = "toolchain"
	CategoryBuild      Category = "build"
	CategoryFileSystem Category = "filesystem"
	CategoryHistory    Category = "history"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Error is a structured error carrying a category and severity.
type Error struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Cause    error    `json:"cause,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a structured error without a cause.
func New(category Category, severity Severity, message string) *Error {
	return &Error{Category: category, Severity: severity, Message: message}
}

// Wrap creates a structured error around an existing one.
func Wrap(err error, category Category, message string) *Error {
	return &Error{Category: category, Severity: SeverityError, Message: message, Cause: err}
}

// IsCategory checks whether err carries the given category.
func IsCategory(err error, category Category) bool {
	if se, ok := err.(*Error); ok {
		return se.Category == category
	}
	return false
}

// GetCategory extracts the category from err, defaulting to internal.
func GetCategory(err error) Category {
	if se, ok := err.(*Error); ok {
		return se.Category
	}
	return CategoryInternal
}
