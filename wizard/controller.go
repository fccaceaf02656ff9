package wizard

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
)

// CancelOutcome reports what RequestCancel did
type CancelOutcome int

const (
	// CancelExited means the draft was clean and the router was told to leave
	CancelExited CancelOutcome = iota
	// CancelPendingConfirmation means the user must confirm or dismiss
	CancelPendingConfirmation
)

// String returns the string representation
func (o CancelOutcome) String() string {
	if o == CancelPendingConfirmation {
		return "PENDING_CONFIRMATION"
	}
	return "EXITED"
}

// Controller drives one wizard instance: a linear step machine over a draft,
// with bounded undo for field edits and a cancel-confirmation sub-state.
//
// A Controller is not safe for concurrent use. All calls for one workflow are
// expected to come from a single logical thread of control.
type Controller struct {
	wizard    *walkflow.Wizard
	sessionID string

	state   walkflow.WorkflowState
	draft   *walkflow.DraftFormState
	history *walkflow.HistoryStack

	router    walkflow.Router
	logger    zerolog.Logger
	listeners []listenerEntry
	nextID    int

	lastValidation *walkflow.ValidationError
	exited         bool
	exitReason     walkflow.ExitReason
	submission     *walkflow.Submission
	now            func() time.Time
}

type listenerEntry struct {
	id int
	fn Listener
}

// Option configures a Controller
type Option func(*Controller)

// WithLogger sets a custom logger for the controller
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithRouter sets the navigation collaborator notified on exit
func WithRouter(router walkflow.Router) Option {
	return func(c *Controller) {
		c.router = router
	}
}

// WithSessionID overrides the generated session ID
func WithSessionID(id string) Option {
	return func(c *Controller) {
		c.sessionID = id
	}
}

// WithClock overrides the time source used for submissions
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New enters a workflow: a fresh draft, an empty history and step 0
func New(wz *walkflow.Wizard, opts ...Option) (*Controller, error) {
	if err := wz.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wizard: %w", err)
	}

	draft, err := wz.NewDraft()
	if err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	// Default logger: pretty console output, Info level
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	c := &Controller{
		wizard:    wz,
		sessionID: uuid.New().String(),
		draft:     draft,
		history:   walkflow.NewHistoryStack(wz.HistoryCapacity()),
		router:    walkflow.RouterFunc(func(walkflow.ExitEvent) {}),
		logger:    defaultLogger,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger = walkflow.WorkflowLogger(c.logger, wz.ID(), c.sessionID)
	c.logger.Debug().
		Str("event", walkflow.EventWorkflowEntered).
		Int("steps", wz.StepCount()).
		Msg("Workflow entered")

	return c, nil
}

// SessionID returns the ID of this workflow instance
func (c *Controller) SessionID() string {
	return c.sessionID
}

// Wizard returns the blueprint this controller runs
func (c *Controller) Wizard() *walkflow.Wizard {
	return c.wizard
}

// State returns a copy of the step state
func (c *Controller) State() walkflow.WorkflowState {
	return c.state
}

// CurrentStep returns the active step
func (c *Controller) CurrentStep() *walkflow.Step {
	step, _ := c.wizard.StepAt(c.state.CurrentStepIndex)
	return step
}

// IsTerminalStep reports whether the active step is the last one
func (c *Controller) IsTerminalStep() bool {
	return c.state.CurrentStepIndex == c.wizard.StepCount()-1
}

// Exited reports whether the workflow has been left
func (c *Controller) Exited() bool {
	return c.exited
}

// ExitReason returns why the workflow was left, empty while active
func (c *Controller) ExitReason() walkflow.ExitReason {
	return c.exitReason
}

// Submission returns a copy of the submitted record, nil before Submit succeeds
func (c *Controller) Submission() *walkflow.Submission {
	if c.submission == nil {
		return nil
	}
	return c.submission.Clone()
}

// Field decodes a draft field into target
func (c *Controller) Field(name string, target any) error {
	return c.draft.GetField(name, target)
}

// Fields returns a copy of the draft fields
func (c *Controller) Fields() map[string]json.RawMessage {
	return c.draft.Fields()
}

// Decode unmarshals the whole draft into target
func (c *Controller) Decode(target any) error {
	return c.draft.Decode(target)
}

// IsBlank reports whether a draft field is missing or empty
func (c *Controller) IsBlank(name string) bool {
	return c.draft.IsBlank(name)
}

// IsDirty reports whether the draft differs from its initial value
func (c *Controller) IsDirty() bool {
	return c.draft.IsDirty()
}

// HistoryLen returns the number of undoable edits
func (c *Controller) HistoryLen() int {
	return c.history.Len()
}

// CanUndo reports whether Undo would restore anything
func (c *Controller) CanUndo() bool {
	return !c.exited && !c.state.CancelConfirming && c.history.Len() > 0
}

// LastValidation returns the failure from the most recent blocked Advance or Submit
func (c *Controller) LastValidation() *walkflow.ValidationError {
	return c.lastValidation
}

// CanAdvance reports whether the active step currently validates
func (c *Controller) CanAdvance() bool {
	if c.exited || c.state.CancelConfirming {
		return false
	}
	return c.CurrentStep().Check(c.draft) == nil
}

// stateName renders the machine state for error messages and logs
func (c *Controller) stateName() string {
	switch {
	case c.exited:
		return "Exited"
	case c.state.CancelConfirming:
		return "ConfirmingCancel"
	default:
		return fmt.Sprintf("Step_%d(%s)", c.state.CurrentStepIndex, c.CurrentStep().ID)
	}
}

// ensureEditable rejects mutations after exit or while a cancel is pending
func (c *Controller) ensureEditable(operation string) error {
	if c.exited || c.state.CancelConfirming {
		return walkflow.NewInvalidStateError(operation, c.stateName())
	}
	return nil
}
