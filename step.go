package walkflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator is the predicate that gates leaving a wizard step
type Validator func(draft *DraftFormState) error

// Step is one screen of a linear wizard
type Step struct {
	// Identity
	ID          string
	Name        string
	Description string

	// Help text shown while the step is active
	Guide string

	// Gate for Advance (and Submit on the terminal step); nil always passes
	Validate Validator
}

// NewStep creates a new wizard step
func NewStep(id, name string, opts ...StepOption) *Step {
	s := &Step{
		ID:   id,
		Name: name,
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Check runs the step's validator, tagging failures with the step ID
func (s *Step) Check(draft *DraftFormState) error {
	if s.Validate == nil {
		return nil
	}
	err := s.Validate(draft)
	if err == nil {
		return nil
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Step == "" {
			ve.Step = s.ID
		}
		return ve
	}
	return NewValidationError("", err.Error()).WithStep(s.ID)
}

// RequireFields fails on the first listed field that is missing or blank
func RequireFields(names ...string) Validator {
	return func(draft *DraftFormState) error {
		for _, name := range names {
			if draft.IsBlank(name) {
				return NewValidationError(name, fmt.Sprintf("%s is required", name))
			}
		}
		return nil
	}
}

// AllOf runs validators in order and returns the first failure
func AllOf(validators ...Validator) Validator {
	return func(draft *DraftFormState) error {
		for _, v := range validators {
			if v == nil {
				continue
			}
			if err := v(draft); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewFieldValidator returns a validator.Validate that reports json field names
func NewFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateStruct decodes the draft into T and checks its `validate` tags.
// Only the first failing field is reported, matching the single inline message a step shows.
func ValidateStruct[T any](v *validator.Validate) Validator {
	return func(draft *DraftFormState) error {
		var target T
		if err := draft.Decode(&target); err != nil {
			return NewValidationError("", err.Error())
		}

		err := v.Struct(&target)
		if err == nil {
			return nil
		}

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return NewValidationError(fe.Field(), describeFieldError(fe))
		}
		return NewValidationError("", err.Error())
	}
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
