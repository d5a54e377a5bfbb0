package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the fqn index
type ErrorType string

const (
	// Name errors
	ErrorTypeMalformedName ErrorType = "malformed_name"
	ErrorTypeValidation    ErrorType = "validation"

	// Indexing errors
	ErrorTypeIndexing ErrorType = "indexing"
	ErrorTypeEvent    ErrorType = "event"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

var (
	// ErrMalformedName is matched by every *NameError
	ErrMalformedName = errors.New("malformed qualified name")

	// ErrValidationRejected is matched by every *ValidationError
	ErrValidationRejected = errors.New("segment rejected by validator")
)

// NameError reports a qualified name whose syntax cannot be split
type NameError struct {
	Type      ErrorType
	Name      string
	Reason    string
	Timestamp time.Time
}

// NewNameError creates a malformed name error
func NewNameError(name, reason string) *NameError {
	return &NameError{
		Type:      ErrorTypeMalformedName,
		Name:      name,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *NameError) Error() string {
	return fmt.Sprintf("malformed name %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrMalformedName so callers can use errors.Is
func (e *NameError) Unwrap() error {
	return ErrMalformedName
}

// ValidationError reports a segment that a validator refused
type ValidationError struct {
	Type      ErrorType
	Name      string
	Segment   string
	Timestamp time.Time
}

// NewValidationError creates a validation error for the rejected segment of name
func NewValidationError(name, segment string) *ValidationError {
	return &ValidationError{
		Type:      ErrorTypeValidation,
		Name:      name,
		Segment:   segment,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("segment %q of %q rejected by validator", e.Segment, e.Name)
}

// Unwrap returns ErrValidationRejected
func (e *ValidationError) Unwrap() error {
	return ErrValidationRejected
}

// IndexingError represents an error during a source scan
type IndexingError struct {
	Type        ErrorType
	Root        string
	Package     string
	Operation   string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewIndexingError creates a new indexing error with context
func NewIndexingError(op string, err error) *IndexingError {
	return &IndexingError{
		Type:       ErrorTypeIndexing,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// WithRoot adds source root and package information to the error
func (e *IndexingError) WithRoot(root, pkg string) *IndexingError {
	e.Root = root
	e.Package = pkg
	return e
}

// WithRecoverable marks the error as recoverable
func (e *IndexingError) WithRecoverable(recoverable bool) *IndexingError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *IndexingError) Error() string {
	if e.Root != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Type, e.Operation, e.Root, e.Underlying)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Type, e.Operation, e.Underlying)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *IndexingError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the error can be retried
func (e *IndexingError) IsRecoverable() bool {
	return e.Recoverable
}

// EventError represents a refresh request that could not be dispatched
type EventError struct {
	Type       ErrorType
	Kind       string
	Path       string
	Underlying error
	Timestamp  time.Time
}

// NewEventError creates a new event error
func NewEventError(kind, path string, err error) *EventError {
	return &EventError{
		Type:       ErrorTypeEvent,
		Kind:       kind,
		Path:       path,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *EventError) Error() string {
	return fmt.Sprintf("%s event for %s failed: %v", e.Kind, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *EventError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// isPermissionError checks if the error is a permission error
func isPermissionError(err error) bool {
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// MultiError represents multiple errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a new multi-error
func NewMultiError(errs []error) *MultiError {
	// Filter out nil errors
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

// Error implements the error interface
func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
