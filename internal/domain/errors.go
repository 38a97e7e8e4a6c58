package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("product not available")
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("not found")
)

// ValidationError reports a data-integrity violation on a single field
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError is raised when a booking overlaps a confirmed or ongoing order on the same product
type ConflictError struct {
	ProductID   int64
	ProductName string
	// OrderNumbers lists the conflicting orders, when known
	OrderNumbers []string
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("product '%s' is not available for the selected period", e.ProductName)
	if len(e.OrderNumbers) > 0 {
		msg += fmt.Sprintf(" (conflicts with %s)", strings.Join(e.OrderNumbers, ", "))
	}
	return msg
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict || target == ErrValidation
}

// StateError reports a lifecycle action invoked from the wrong state
type StateError struct {
	Action   Action
	Required []OrderState
	Current  OrderState
}

func (e *StateError) Error() string {
	required := make([]string, len(e.Required))
	for i, s := range e.Required {
		required[i] = string(s)
	}
	return fmt.Sprintf("cannot %s order in state %s: requires %s", e.Action, e.Current, strings.Join(required, " or "))
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}

// NotFound wraps ErrNotFound with the entity and id
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}
