package builder

import (
	"fmt"

	"github.com/sicko7947/walkflow"
)

// WizardBuilder provides a fluent API for building wizards
type WizardBuilder struct {
	wizard *walkflow.Wizard
	errs   []error
}

// NewWizard creates a new wizard builder
func NewWizard(id, name string) *WizardBuilder {
	return &WizardBuilder{
		wizard: walkflow.NewWizardInstance(id, name),
	}
}

// WithDescription sets the wizard description
func (b *WizardBuilder) WithDescription(description string) *WizardBuilder {
	b.wizard.SetDescription(description)
	return b
}

// WithHistoryCapacity sets how many edits each instance can undo
func (b *WizardBuilder) WithHistoryCapacity(capacity int) *WizardBuilder {
	b.wizard.SetHistoryCapacity(capacity)
	return b
}

// WithInitialField seeds every new draft with a value.
// Initial values form the clean state, so they never make a draft dirty.
func (b *WizardBuilder) WithInitialField(name string, value any) *WizardBuilder {
	b.wizard.SetInitialField(name, value)
	return b
}

// WithCancelGuard replaces the dirty check used when cancelling
func (b *WizardBuilder) WithCancelGuard(guard walkflow.CancelGuard) *WizardBuilder {
	b.wizard.SetCancelGuard(guard)
	return b
}

// ThenStep appends a step after the last added step
func (b *WizardBuilder) ThenStep(step *walkflow.Step) *WizardBuilder {
	if step == nil {
		b.errs = append(b.errs, fmt.Errorf("nil step after %d steps", b.wizard.StepCount()))
		return b
	}

	// Step IDs must be unique within a wizard
	if _, err := b.wizard.GetStep(step.ID); err == nil {
		b.errs = append(b.errs, fmt.Errorf("step %s added twice", step.ID))
		return b
	}

	b.wizard.AddStep(step)
	return b
}

// Sequence appends multiple steps in order
func (b *WizardBuilder) Sequence(steps ...*walkflow.Step) *WizardBuilder {
	for _, step := range steps {
		b.ThenStep(step)
	}
	return b
}

// Build finalizes and validates the wizard
func (b *WizardBuilder) Build() (*walkflow.Wizard, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("invalid wizard steps: %w", b.errs[0])
	}

	if err := b.wizard.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wizard: %w", err)
	}

	return b.wizard, nil
}

// MustBuild finalizes and validates the wizard, panics on error
func (b *WizardBuilder) MustBuild() *walkflow.Wizard {
	wz, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build wizard: %v", err))
	}
	return wz
}
