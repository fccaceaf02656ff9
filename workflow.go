package walkflow

import (
	"fmt"
)

// CancelGuard decides whether leaving the workflow needs confirmation
type CancelGuard func(draft *DraftFormState) bool

// Wizard is the blueprint of a linear multi-step workflow
type Wizard struct {
	id          string
	name        string
	description string

	// Steps in order; the last one is terminal
	steps []*Step

	// Undo capacity for each instance
	historyCapacity int

	// Values every new draft starts from
	initialFields map[string]any

	// Overrides the default dirty check on RequestCancel
	cancelGuard CancelGuard
}

// ID returns the wizard ID
func (w *Wizard) ID() string {
	return w.id
}

// Name returns the wizard name
func (w *Wizard) Name() string {
	return w.name
}

// Description returns the wizard description
func (w *Wizard) Description() string {
	return w.description
}

// Steps returns the steps in order
func (w *Wizard) Steps() []*Step {
	out := make([]*Step, len(w.steps))
	copy(out, w.steps)
	return out
}

// StepCount returns the number of steps
func (w *Wizard) StepCount() int {
	return len(w.steps)
}

// StepAt returns the step at index i
func (w *Wizard) StepAt(i int) (*Step, error) {
	if i < 0 || i >= len(w.steps) {
		return nil, fmt.Errorf("step index %d out of range [0, %d)", i, len(w.steps))
	}
	return w.steps[i], nil
}

// GetStep retrieves a step by ID
func (w *Wizard) GetStep(stepID string) (*Step, error) {
	for _, s := range w.steps {
		if s.ID == stepID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("step %s not found in wizard", stepID)
}

// HistoryCapacity returns the undo capacity
func (w *Wizard) HistoryCapacity() int {
	return w.historyCapacity
}

// CancelGuard returns the configured guard, or nil for the default dirty check
func (w *Wizard) CancelGuard() CancelGuard {
	return w.cancelGuard
}

// NewDraft creates a fresh draft seeded with the wizard's initial fields
func (w *Wizard) NewDraft() (*DraftFormState, error) {
	return NewDraftFormState(w.initialFields)
}

// NewWizardInstance creates a new wizard blueprint
func NewWizardInstance(id, name string) *Wizard {
	return &Wizard{
		id:              id,
		name:            name,
		steps:           []*Step{},
		historyCapacity: DefaultHistoryCapacity,
		initialFields:   make(map[string]any),
	}
}

// SetDescription sets the wizard description
func (w *Wizard) SetDescription(description string) {
	w.description = description
}

// SetHistoryCapacity sets the undo capacity
func (w *Wizard) SetHistoryCapacity(capacity int) {
	w.historyCapacity = capacity
}

// SetInitialField sets the value a new draft starts with
func (w *Wizard) SetInitialField(name string, value any) {
	w.initialFields[name] = value
}

// SetCancelGuard sets the cancel guard
func (w *Wizard) SetCancelGuard(guard CancelGuard) {
	w.cancelGuard = guard
}

// AddStep appends a step
func (w *Wizard) AddStep(step *Step) {
	w.steps = append(w.steps, step)
}

// Validate checks the blueprint is usable
func (w *Wizard) Validate() error {
	if len(w.steps) == 0 {
		return fmt.Errorf("wizard %s has no steps", w.id)
	}
	if w.historyCapacity <= 0 {
		return fmt.Errorf("wizard %s has non-positive history capacity %d", w.id, w.historyCapacity)
	}

	seen := make(map[string]bool, len(w.steps))
	for _, s := range w.steps {
		if s == nil {
			return fmt.Errorf("wizard %s contains a nil step", w.id)
		}
		if s.ID == "" {
			return fmt.Errorf("wizard %s contains a step without ID", w.id)
		}
		if seen[s.ID] {
			return fmt.Errorf("wizard %s registers step %s twice", w.id, s.ID)
		}
		seen[s.ID] = true
	}

	if _, err := w.NewDraft(); err != nil {
		return fmt.Errorf("wizard %s has invalid initial fields: %w", w.id, err)
	}
	return nil
}
