package walkflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test types
type testDetails struct {
	IssueType   string `json:"issueType" validate:"required,oneof=pothole lighting"`
	Description string `json:"description" validate:"required,max=20"`
}

func newDetailsDraft(t *testing.T, issueType, description string) *DraftFormState {
	t.Helper()
	draft, err := NewDraftFormState(map[string]any{
		"issueType":   issueType,
		"description": description,
	})
	require.NoError(t, err)
	return draft
}

func TestNewStep(t *testing.T) {
	step := NewStep("location", "Location")

	assert.Equal(t, "location", step.ID)
	assert.Equal(t, "Location", step.Name)
	assert.Nil(t, step.Validate)
	assert.NoError(t, step.Check(newDetailsDraft(t, "", "")))
}

func TestStep_CheckTagsStep(t *testing.T) {
	step := NewStep("details", "Details", WithValidator(RequireFields("description")))

	err := step.Check(newDetailsDraft(t, "pothole", ""))
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "details", ve.Step)
	assert.Equal(t, "description", ve.Field)
	assert.Equal(t, ErrCodeValidation, ve.Code)
}

func TestStep_CheckWrapsPlainErrors(t *testing.T) {
	step := NewStep("details", "Details", WithValidator(func(*DraftFormState) error {
		return assert.AnError
	}))

	err := step.Check(newDetailsDraft(t, "", ""))
	require.True(t, IsValidationFailure(err))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "details", ve.Step)
	assert.Empty(t, ve.Field)
	assert.Equal(t, assert.AnError.Error(), ve.Message)
}

func TestStep_CheckKeepsExistingStep(t *testing.T) {
	step := NewStep("details", "Details", WithValidator(func(*DraftFormState) error {
		return NewValidationError("x", "bad").WithStep("other")
	}))

	var ve *ValidationError
	require.True(t, errors.As(step.Check(newDetailsDraft(t, "", "")), &ve))
	assert.Equal(t, "other", ve.Step)
}

func TestRequireFields_FirstBlankWins(t *testing.T) {
	v := RequireFields("issueType", "description")

	err := v(newDetailsDraft(t, "", ""))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "issueType", ve.Field)
	assert.Equal(t, "issueType is required", ve.Message)

	assert.NoError(t, v(newDetailsDraft(t, "pothole", "deep")))
}

func TestAllOf(t *testing.T) {
	var calls []string
	record := func(name string, err error) Validator {
		return func(*DraftFormState) error {
			calls = append(calls, name)
			return err
		}
	}

	v := AllOf(record("a", nil), nil, record("b", assert.AnError), record("c", nil))
	err := v(newDetailsDraft(t, "", ""))

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestValidateStruct(t *testing.T) {
	v := ValidateStruct[testDetails](NewFieldValidator())

	tests := []struct {
		name        string
		issueType   string
		description string
		wantField   string
		wantMessage string
	}{
		{"valid", "pothole", "deep hole", "", ""},
		{"missing type reported first", "", "", "issueType", "issueType is required"},
		{"unknown type", "graffiti", "paint", "issueType", "issueType must be one of [pothole lighting]"},
		{"description too long", "lighting", "this description is far too long", "description", "description must be at most 20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v(newDetailsDraft(t, tt.issueType, tt.description))
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.wantField, ve.Field)
			assert.Equal(t, tt.wantMessage, ve.Message)
		})
	}
}

func TestValidateStruct_DecodeFailure(t *testing.T) {
	v := ValidateStruct[testDetails](NewFieldValidator())

	draft, err := NewDraftFormState(map[string]any{"issueType": 42})
	require.NoError(t, err)

	err = v(draft)
	require.True(t, IsValidationFailure(err))
	assert.Contains(t, err.Error(), "failed to decode draft")
}
