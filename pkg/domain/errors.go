package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is the root of every lookup failure.
var ErrNotFound = errors.New("not found")

var (
	// ErrTypeNotFound is returned when a type code or id cannot be resolved.
	ErrTypeNotFound = fmt.Errorf("type %w", ErrNotFound)

	// ErrStateNotFound is returned when a state id cannot be resolved.
	ErrStateNotFound = fmt.Errorf("state %w", ErrNotFound)

	// ErrOperationNotFound is returned when an operation id cannot be resolved.
	ErrOperationNotFound = fmt.Errorf("operation %w", ErrNotFound)
)

var (
	// ErrSelfParent is returned when a type is dropped onto itself.
	ErrSelfParent = errors.New("type cannot be its own parent")

	// ErrCycle is returned when a reparent would make a type its own ancestor.
	ErrCycle = errors.New("type cannot be moved under its own descendant")

	// ErrUnknownNode is returned when a reparent references an id missing from the forest.
	ErrUnknownNode = errors.New("unknown type in forest")

	// ErrDuplicateCode is returned when a type code is already taken.
	ErrDuplicateCode = errors.New("type code already exists")

	// ErrDuplicateID is returned when a state or operation id is already taken.
	ErrDuplicateID = errors.New("id already exists")
)

// ErrPreferenceNotFound is returned by preference stores for unknown keys.
var ErrPreferenceNotFound = errors.New("preference not found")

// ErrTransport marks network failures talking to the backend.
var ErrTransport = errors.New("transport failure")

// ErrSaveInProgress is returned when a save is requested while another is in flight.
var ErrSaveInProgress = errors.New("save already in progress")

// NotFoundFor returns the not-found sentinel of a kind.
func NotFoundFor(kind Kind) error {
	switch kind {
	case KindType:
		return ErrTypeNotFound
	case KindState:
		return ErrStateNotFound
	case KindOperation:
		return ErrOperationNotFound
	}
	return ErrNotFound
}

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Kind   Kind   // Entity kind
	Key    string // Buffering key of the entity (code or id)
	Field  string // Field name
	Reason string // Human-readable reason for failure
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s field %q: %s", e.Kind, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q field %q: %s", e.Kind, e.Key, e.Field, e.Reason)
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("  %d. %s\n", i+1, err.Error())
	}
	return msg
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}

// IsValidation reports whether err carries validation failures.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
