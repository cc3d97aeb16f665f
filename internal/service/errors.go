package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Common service errors
var (
	// ErrNotFound indicates the referenced entity does not exist
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the principal may see the entity but not modify it
	ErrForbidden = errors.New("forbidden")
	// ErrConflict indicates a unique-key violation, e.g. re-creating an installation
	ErrConflict = errors.New("conflict")
)

// ValidationError carries a field-keyed message map for malformed input.
// Keys are internal field names; the API boundary translates them to the
// external contract.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("validation failed: %s", strings.Join(keys, ", "))
}

// NewValidationError creates a validation error for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// AsValidationError extracts a ValidationError from an error chain
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
