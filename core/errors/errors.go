// Package errors provides the error taxonomy shared by text sources, the cache and the resolver.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a reference does not exist in a source
	ErrNotFound = errors.New("not found")
	// ErrUnavailable indicates a transient backend or network failure
	ErrUnavailable = errors.New("unavailable")
	// ErrInvalidInput indicates malformed input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unknown source or unsupported format
	ErrUnsupported = errors.New("unsupported")
	// ErrInternal indicates an internal system error
	ErrInternal = errors.New("internal error")
)

// Kind classifies an error into the retrieval taxonomy.
type Kind int

const (
	// KindNone is returned for a nil error.
	KindNone Kind = iota
	// KindNotFound: stable, safe to cache for a long time.
	KindNotFound
	// KindUnavailable: transient, cache briefly if at all.
	KindUnavailable
	// KindMalformed: the reference never reaches a backend.
	KindMalformed
	// KindUnsupported: the source name is not registered.
	KindUnsupported
	// KindInternal covers everything else.
	KindInternal
)

var kindNames = map[Kind]string{
	KindNone:        "none",
	KindNotFound:    "not_found",
	KindUnavailable: "unavailable",
	KindMalformed:   "malformed",
	KindUnsupported: "unsupported",
	KindInternal:    "internal",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies err. Context cancellation and deadlines count as unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, ErrInvalidInput):
		return KindMalformed
	case errors.Is(err, ErrUnsupported):
		return KindUnsupported
	default:
		return KindInternal
	}
}

// NotFoundError represents a missing verse, chapter or book with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "verse", "chapter", "book")
	ID       string // Identifier of the resource
	Source   string // Source that was asked, if any
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s not found", e.Resource)
	if e.ID != "" {
		msg = fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	if e.Source != "" {
		msg += " (" + e.Source + ")"
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// UnavailableError represents a transient backend failure.
// Status holds the HTTP status code when the backend answered at all.
type UnavailableError struct {
	Source string // Source name
	Status int    // HTTP status, 0 if no response was received
	Err    error  // Underlying error, if any
}

func (e *UnavailableError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s unavailable: status %d", e.Source, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Source, e.Err)
	default:
		return fmt.Sprintf("%s unavailable", e.Source)
	}
}

// Unwrap exposes both the sentinel and the cause so that errors.Is works
// for ErrUnavailable as well as context.Canceled.
func (e *UnavailableError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUnavailable, e.Err}
	}
	return []error{ErrUnavailable}
}

// ValidationError represents an input validation error with context
type ValidationError struct {
	Field   string // Field name that failed validation
	Value   string // Value that failed validation (may be redacted)
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing failure: a malformed reference or a broken dataset file
type ParseError struct {
	Format  string // Format being parsed (e.g., "reference", "JSON", "OSIS")
	Path    string // File path or input text, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unknown source or an unsupported dataset format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id, source string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
		Source:   source,
	}
}

// NewUnavailable creates an UnavailableError
func NewUnavailable(source string, status int, err error) *UnavailableError {
	return &UnavailableError{
		Source: source,
		Status: status,
		Err:    err,
	}
}

// NewValidation creates a ValidationError
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{
		Format:  format,
		Path:    path,
		Message: message,
	}
}

// NewMalformedReference creates the ParseError used for references that could not be parsed.
func NewMalformedReference(text string) *ParseError {
	return NewParse("reference", text, "no book name")
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{
		Feature: feature,
		Reason:  reason,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
