// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// FieldErrors and ValidationError both wrap it.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or not positive.
	ErrInvalidID = errors.New("invalid ID")

	// ErrUnauthorized is returned when no authenticated principal is present.
	ErrUnauthorized = errors.New("unauthorized operation")

	// ErrForbidden is returned when the principal may not perform the operation.
	ErrForbidden = errors.New("forbidden operation")
)

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError creates a ValidationError for field. If err is nil,
// ErrValidation is wrapped.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap exposes the wrapped cause.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is reports every ValidationError as an ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// FieldErrors collects messages per field. The zero value is ready to use.
type FieldErrors map[string][]string

// Add records a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// Err returns fe as an error, or nil when no field failed.
func (fe FieldErrors) Err() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(fe[f], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Is reports FieldErrors as an ErrValidation.
func (fe FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

// AsFieldErrors converts any validation error into FieldErrors.
// The second result is false when err is not a validation error.
func AsFieldErrors(err error) (FieldErrors, bool) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, true
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return FieldErrors{ve.Field: {ve.Message}}, true
	}
	if errors.Is(err, ErrValidation) {
		return FieldErrors{"non_field_errors": {err.Error()}}, true
	}
	return nil, false
}
