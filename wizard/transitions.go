package wizard

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/sicko7947/walkflow"
)

// SetField commits a field edit. The pre-edit draft is pushed onto the history first,
// so Undo returns to it. Committing the value already stored records nothing.
func (c *Controller) SetField(name string, value any) error {
	if err := c.ensureEditable("SetField"); err != nil {
		return err
	}

	changed, err := c.draft.Changes(name, value)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	c.history.Push(c.draft.Snapshot())
	if err := c.draft.SetField(name, value); err != nil {
		// Drop the snapshot recorded for an edit that never happened
		c.history.Undo()
		return err
	}

	walkflow.LogFieldChanged(c.logger, name, c.history.Len())
	c.emit(Event{Type: EventFieldChanged, Field: name})
	return nil
}

// ClearField removes a field as an undoable edit (e.g. detaching a photo)
func (c *Controller) ClearField(name string) error {
	if err := c.ensureEditable("ClearField"); err != nil {
		return err
	}
	if !c.draft.Has(name) {
		return nil
	}

	c.history.Push(c.draft.Snapshot())
	c.draft.ClearField(name)

	walkflow.LogFieldChanged(c.logger, name, c.history.Len())
	c.emit(Event{Type: EventFieldChanged, Field: name})
	return nil
}

// Undo restores the draft to the state before the most recent edit.
// With an empty history it returns false and changes nothing. The step index is not affected.
func (c *Controller) Undo() (bool, error) {
	if err := c.ensureEditable("Undo"); err != nil {
		return false, err
	}

	snapshot, ok := c.history.Undo()
	if !ok {
		return false, nil
	}

	c.draft.Restore(snapshot)
	c.lastValidation = nil

	walkflow.LogUndo(c.logger, snapshot.Seq(), c.history.Len())
	c.emit(Event{Type: EventUndoApplied})
	return true, nil
}

// Advance validates the active step and moves forward one step.
// On the last step it does nothing. A failed validation returns a *walkflow.ValidationError
// and leaves the state unchanged.
func (c *Controller) Advance() error {
	if err := c.ensureEditable("Advance"); err != nil {
		return err
	}
	if c.IsTerminalStep() {
		return nil
	}

	from := c.CurrentStep()
	if err := from.Check(c.draft); err != nil {
		var ve *walkflow.ValidationError
		if errors.As(err, &ve) {
			c.lastValidation = ve
		}
		walkflow.LogAdvanceBlocked(c.logger, from.ID, err)
		c.emit(Event{Type: EventAdvanceBlocked})
		return err
	}

	c.history.Push(c.draft.Snapshot())
	c.state.CurrentStepIndex++
	c.lastValidation = nil

	walkflow.LogStepAdvanced(c.logger, from.ID, c.CurrentStep().ID)
	c.emit(Event{Type: EventStepAdvanced})
	return nil
}

// Retreat moves back one step, stopping at the first. Step navigation is not undoable.
func (c *Controller) Retreat() error {
	if err := c.ensureEditable("Retreat"); err != nil {
		return err
	}
	if c.state.CurrentStepIndex == 0 {
		return nil
	}

	from := c.CurrentStep()
	c.state.CurrentStepIndex--
	c.lastValidation = nil

	walkflow.LogStepRetreated(c.logger, from.ID, c.CurrentStep().ID)
	c.emit(Event{Type: EventStepRetreated})
	return nil
}

// RequestCancel asks to leave the workflow. A dirty draft (or the wizard's cancel guard)
// moves into the confirmation sub-state; otherwise the router is told to exit immediately.
func (c *Controller) RequestCancel() (CancelOutcome, error) {
	if c.exited {
		return CancelExited, walkflow.NewInvalidStateError("RequestCancel", c.stateName())
	}
	if c.state.CancelConfirming {
		return CancelPendingConfirmation, nil
	}

	needsConfirm := c.draft.IsDirty()
	if guard := c.wizard.CancelGuard(); guard != nil {
		needsConfirm = guard(c.draft)
	}

	if !needsConfirm {
		c.exit(walkflow.ExitReasonCancelled, nil)
		return CancelExited, nil
	}

	c.state.CancelConfirming = true
	c.logger.Debug().
		Str("event", walkflow.EventCancelRequested).
		Msg("Cancel awaiting confirmation")
	c.emit(Event{Type: EventCancelRequested})
	return CancelPendingConfirmation, nil
}

// ConfirmCancel discards the draft and exits
func (c *Controller) ConfirmCancel() error {
	if c.exited || !c.state.CancelConfirming {
		return walkflow.NewInvalidStateError("ConfirmCancel", c.stateName())
	}
	c.exit(walkflow.ExitReasonCancelled, nil)
	return nil
}

// DismissCancel returns to the step the cancel was requested from
func (c *Controller) DismissCancel() error {
	if c.exited || !c.state.CancelConfirming {
		return walkflow.NewInvalidStateError("DismissCancel", c.stateName())
	}
	c.state.CancelConfirming = false

	c.logger.Debug().
		Str("event", walkflow.EventCancelDismissed).
		Msg("Cancel dismissed")
	c.emit(Event{Type: EventCancelDismissed})
	return nil
}

// Submit packages the draft into an immutable submission and exits.
// It is only allowed on the terminal step; the terminal step's validator must pass.
func (c *Controller) Submit() (*walkflow.Submission, error) {
	return c.SubmitWith(nil)
}

// SubmitWith submits like Submit and adds extra fields to the submission only.
// The draft and its history never see the extra fields.
func (c *Controller) SubmitWith(extra map[string]any) (*walkflow.Submission, error) {
	if err := c.ensureEditable("Submit"); err != nil {
		return nil, err
	}
	if !c.IsTerminalStep() {
		return nil, walkflow.NewInvalidStateError("Submit", c.stateName())
	}

	step := c.CurrentStep()
	if err := step.Check(c.draft); err != nil {
		var ve *walkflow.ValidationError
		if errors.As(err, &ve) {
			c.lastValidation = ve
		}
		walkflow.LogAdvanceBlocked(c.logger, step.ID, err)
		c.emit(Event{Type: EventAdvanceBlocked})
		return nil, err
	}

	fields := c.draft.Fields()
	for name, value := range extra {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal submission field %s: %w", name, err)
		}
		fields[name] = data
	}

	sub := &walkflow.Submission{
		ID:          ulid.Make().String(),
		WorkflowID:  c.wizard.ID(),
		SessionID:   c.sessionID,
		Fields:      fields,
		SubmittedAt: c.now(),
	}
	c.submission = sub
	c.state.TerminalReached = true

	c.logger.Info().
		Str("event", walkflow.EventWorkflowSubmitted).
		Str("submission_id", sub.ID).
		Msg("Workflow submitted")

	c.exit(walkflow.ExitReasonSubmitted, sub.Clone())
	return sub.Clone(), nil
}

// exit ends the workflow and hands control to the router
func (c *Controller) exit(reason walkflow.ExitReason, sub *walkflow.Submission) {
	c.exited = true
	c.exitReason = reason
	c.state.CancelConfirming = false
	c.history.Clear()

	walkflow.LogWorkflowExited(c.logger, reason)
	c.emit(Event{Type: EventExited})

	c.router.Exit(walkflow.ExitEvent{
		WorkflowID: c.wizard.ID(),
		SessionID:  c.sessionID,
		Reason:     reason,
		Submission: sub,
	})
}

// String summarizes the controller for debugging
func (c *Controller) String() string {
	return fmt.Sprintf("wizard %s session %s at %s", c.wizard.ID(), c.sessionID, c.stateName())
}
