package walkflow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error codes
const (
	ErrCodeValidation   = "VALIDATION_FAILURE"
	ErrCodeLoadFailure  = "LOAD_FAILURE"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeTimeout      = "TIMEOUT"
)

// ValidationError blocks a wizard transition because a step's input is incomplete.
// It is recovered by the wizard and shown inline next to the disabled "next" affordance.
type ValidationError struct {
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Step      string    `json:"step,omitempty"`
	Field     string    `json:"field,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch {
	case e.Step != "" && e.Field != "":
		return fmt.Sprintf("[%s] %s (step: %s, field: %s)", e.Code, e.Message, e.Step, e.Field)
	case e.Field != "":
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	case e.Step != "":
		return fmt.Sprintf("[%s] %s (step: %s)", e.Code, e.Message, e.Step)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// NewValidationError creates a new validation failure for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Message:   message,
		Code:      ErrCodeValidation,
		Field:     field,
		Timestamp: time.Now(),
	}
}

// WithStep records which wizard step rejected the input
func (e *ValidationError) WithStep(step string) *ValidationError {
	e.Step = step
	return e
}

// LoadError is a transient failure of a load operation
type LoadError struct {
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	Attempt   int       `json:"attempt"`
	Timestamp time.Time `json:"timestamp"`

	cause error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("[%s] %s (attempt: %d)", e.Code, e.Message, e.Attempt)
}

// Unwrap returns the error reported by the load operation
func (e *LoadError) Unwrap() error {
	return e.cause
}

// NewLoadError wraps a load operation failure
func NewLoadError(err error, attempt int) *LoadError {
	code := ErrCodeLoadFailure
	if IsTimeoutError(err) {
		code = ErrCodeTimeout
	}
	return &LoadError{
		Message:   err.Error(),
		Code:      code,
		Attempt:   attempt,
		Timestamp: time.Now(),
		cause:     err,
	}
}

// InvalidStateError reports an operation called in a state that forbids it.
// It is a contract violation by the caller, not a user-facing error.
type InvalidStateError struct {
	Operation string `json:"operation"`
	State     string `json:"state"`
	Code      string `json:"code"`
}

// Error implements the error interface
func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("[%s] %s not allowed in state %s", e.Code, e.Operation, e.State)
}

// NewInvalidStateError creates a new invalid state error
func NewInvalidStateError(operation, state string) *InvalidStateError {
	return &InvalidStateError{
		Operation: operation,
		State:     state,
		Code:      ErrCodeInvalidState,
	}
}

// IsValidationFailure checks if an error is a validation failure
func IsValidationFailure(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsLoadFailure checks if an error is a load failure
func IsLoadFailure(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// IsInvalidState checks if an error is an invalid state error
func IsInvalidState(err error) bool {
	var ie *InvalidStateError
	return errors.As(err, &ie)
}

// IsTimeoutError checks if an error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var le *LoadError
	if errors.As(err, &le) && le.Code == ErrCodeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
