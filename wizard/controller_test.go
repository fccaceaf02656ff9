package wizard

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/sicko7947/walkflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportDetails struct {
	IssueType   string `json:"issueType" validate:"required,oneof=broken_sidewalk missing_crosswalk poor_lighting accessibility_barrier other"`
	Description string `json:"description" validate:"required"`
}

// recordingRouter captures exit events
type recordingRouter struct {
	events []walkflow.ExitEvent
}

func (r *recordingRouter) Exit(e walkflow.ExitEvent) {
	r.events = append(r.events, e)
}

func createTestWizard(t *testing.T) *walkflow.Wizard {
	t.Helper()

	wz := walkflow.NewWizardInstance("report-issue", "Report Issue")
	wz.SetInitialField("location", walkflow.LatLng{Lat: 40.7128, Lon: -74.006})
	wz.AddStep(walkflow.NewStep("location", "Location",
		walkflow.WithValidator(walkflow.RequireFields("location"))))
	wz.AddStep(walkflow.NewStep("details", "Details",
		walkflow.WithValidator(walkflow.ValidateStruct[reportDetails](walkflow.NewFieldValidator()))))
	wz.AddStep(walkflow.NewStep("photo", "Photo"))
	return wz
}

func createTestController(t *testing.T, opts ...Option) (*Controller, *recordingRouter) {
	t.Helper()

	router := &recordingRouter{}
	opts = append([]Option{WithLogger(zerolog.Nop()), WithRouter(router)}, opts...)
	c, err := New(createTestWizard(t), opts...)
	require.NoError(t, err)
	return c, router
}

func TestController_InitialState(t *testing.T) {
	c, _ := createTestController(t)

	assert.Equal(t, walkflow.WorkflowState{}, c.State())
	assert.Equal(t, "location", c.CurrentStep().ID)
	assert.False(t, c.IsDirty())
	assert.False(t, c.CanUndo())
	assert.NotEmpty(t, c.SessionID())
}

func TestController_New_InvalidWizard(t *testing.T) {
	_, err := New(walkflow.NewWizardInstance("empty", "Empty"), WithLogger(zerolog.Nop()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestController_AdvanceBlockedOnDetails(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.Advance())
	require.Equal(t, 1, c.State().CurrentStepIndex)

	require.NoError(t, c.SetField("issueType", "broken_sidewalk"))
	require.NoError(t, c.SetField("description", ""))

	err := c.Advance()
	require.Error(t, err)
	assert.True(t, walkflow.IsValidationFailure(err))
	assert.Equal(t, 1, c.State().CurrentStepIndex)
	assert.False(t, c.CanAdvance())

	ve := c.LastValidation()
	require.NotNil(t, ve)
	assert.Equal(t, "details", ve.Step)
	assert.Equal(t, "description", ve.Field)

	require.NoError(t, c.SetField("description", "Cracked slab"))
	assert.True(t, c.CanAdvance())
	require.NoError(t, c.Advance())
	assert.Equal(t, 2, c.State().CurrentStepIndex)
	assert.Nil(t, c.LastValidation())
}

func TestController_AdvanceOnLastStepIsNoop(t *testing.T) {
	c, _ := createTestController(t)
	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("issueType", "other"))
	require.NoError(t, c.SetField("description", "x"))
	require.NoError(t, c.Advance())

	before := c.HistoryLen()
	require.NoError(t, c.Advance())
	assert.Equal(t, 2, c.State().CurrentStepIndex)
	assert.Equal(t, before, c.HistoryLen())
}

func TestController_RetreatClampedAndNotUndoable(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.Retreat())
	assert.Equal(t, 0, c.State().CurrentStepIndex)

	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("issueType", "poor_lighting"))
	historyLen := c.HistoryLen()

	require.NoError(t, c.Retreat())
	assert.Equal(t, 0, c.State().CurrentStepIndex)
	assert.Equal(t, historyLen, c.HistoryLen())

	var issueType string
	require.NoError(t, c.Field("issueType", &issueType))
	assert.Equal(t, "poor_lighting", issueType)
}

func TestController_AdvanceThenRetreatKeepsEdits(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.SetField("location", walkflow.LatLng{Lat: 1, Lon: 2}))
	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("issueType", "other"))
	require.NoError(t, c.Retreat())

	assert.Equal(t, 0, c.State().CurrentStepIndex)

	var loc walkflow.LatLng
	require.NoError(t, c.Field("location", &loc))
	assert.Equal(t, walkflow.LatLng{Lat: 1, Lon: 2}, loc)

	var issueType string
	require.NoError(t, c.Field("issueType", &issueType))
	assert.Equal(t, "other", issueType)
}

func TestController_UndoReverseOrder(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.SetField("description", "a"))
	require.NoError(t, c.SetField("description", "ab"))
	require.NoError(t, c.SetField("description", "abc"))
	require.Equal(t, 3, c.HistoryLen())

	expected := []string{"ab", "a"}
	for _, want := range expected {
		ok, err := c.Undo()
		require.NoError(t, err)
		require.True(t, ok)

		var got string
		require.NoError(t, c.Field("description", &got))
		assert.Equal(t, want, got)
	}

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, c.IsDirty())
	assert.True(t, c.IsBlank("description"))
}

func TestController_UndoEmptyIsNoop(t *testing.T) {
	c, _ := createTestController(t)

	before := c.Fields()
	ok, err := c.Undo()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, c.Fields())
	assert.Equal(t, walkflow.WorkflowState{}, c.State())
}

func TestController_UndoDoesNotMoveStep(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("issueType", "other"))

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, c.State().CurrentStepIndex)
	assert.True(t, c.IsBlank("issueType"))
}

func TestController_SetFieldUnchangedRecordsNothing(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.SetField("location", walkflow.LatLng{Lat: 40.7128, Lon: -74.006}))
	assert.Equal(t, 0, c.HistoryLen())
	assert.False(t, c.IsDirty())
}

func TestController_ClearFieldIsUndoable(t *testing.T) {
	c, _ := createTestController(t)

	require.NoError(t, c.SetField("photo", map[string]any{"name": "a.jpg"}))
	require.NoError(t, c.ClearField("photo"))
	assert.True(t, c.IsBlank("photo"))

	ok, err := c.Undo()
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, c.IsBlank("photo"))

	// Clearing a missing field changes nothing
	require.NoError(t, c.ClearField("missing"))
	assert.Equal(t, 1, c.HistoryLen())
}

func TestController_HistoryCapacity(t *testing.T) {
	wz := createTestWizard(t)
	wz.SetHistoryCapacity(2)
	c, err := New(wz, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, c.SetField("description", v))
	}
	assert.Equal(t, 2, c.HistoryLen())

	_, _ = c.Undo()
	_, _ = c.Undo()
	ok, err := c.Undo()
	require.NoError(t, err)
	assert.False(t, ok)

	var got string
	require.NoError(t, c.Field("description", &got))
	assert.Equal(t, "b", got)
}

func TestController_RequestCancel_CleanExitsImmediately(t *testing.T) {
	c, router := createTestController(t)

	outcome, err := c.RequestCancel()
	require.NoError(t, err)
	assert.Equal(t, CancelExited, outcome)
	assert.True(t, c.Exited())
	assert.Equal(t, walkflow.ExitReasonCancelled, c.ExitReason())

	require.Len(t, router.events, 1)
	assert.Equal(t, walkflow.ExitReasonCancelled, router.events[0].Reason)
	assert.Nil(t, router.events[0].Submission)
}

func TestController_RequestCancel_DirtyNeedsConfirmation(t *testing.T) {
	c, router := createTestController(t)
	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("description", "draft"))

	outcome, err := c.RequestCancel()
	require.NoError(t, err)
	assert.Equal(t, CancelPendingConfirmation, outcome)
	assert.True(t, c.State().CancelConfirming)
	assert.Empty(t, router.events)

	// Idempotent while pending
	outcome, err = c.RequestCancel()
	require.NoError(t, err)
	assert.Equal(t, CancelPendingConfirmation, outcome)

	// Edits are rejected while confirming
	err = c.SetField("description", "more")
	assert.True(t, walkflow.IsInvalidState(err))
	_, err = c.Undo()
	assert.True(t, walkflow.IsInvalidState(err))
	assert.True(t, walkflow.IsInvalidState(c.Advance()))

	require.NoError(t, c.DismissCancel())
	assert.False(t, c.State().CancelConfirming)
	assert.Equal(t, 1, c.State().CurrentStepIndex)
	assert.Empty(t, router.events)

	_, err = c.RequestCancel()
	require.NoError(t, err)
	require.NoError(t, c.ConfirmCancel())
	assert.True(t, c.Exited())
	assert.Equal(t, 0, c.HistoryLen())
	require.Len(t, router.events, 1)
	assert.Equal(t, walkflow.ExitReasonCancelled, router.events[0].Reason)
}

func TestController_ConfirmWithoutRequest(t *testing.T) {
	c, _ := createTestController(t)

	assert.True(t, walkflow.IsInvalidState(c.ConfirmCancel()))
	assert.True(t, walkflow.IsInvalidState(c.DismissCancel()))
}

func TestController_CancelGuardOverridesDirtyCheck(t *testing.T) {
	wz := createTestWizard(t)
	wz.SetCancelGuard(func(*walkflow.DraftFormState) bool { return true })
	c, err := New(wz, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	outcome, err := c.RequestCancel()
	require.NoError(t, err)
	assert.Equal(t, CancelPendingConfirmation, outcome)
}

func TestController_SubmitFromNonTerminalStep(t *testing.T) {
	c, router := createTestController(t)

	sub, err := c.Submit()
	require.Error(t, err)
	assert.Nil(t, sub)
	assert.True(t, walkflow.IsInvalidState(err))

	var ise *walkflow.InvalidStateError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Submit", ise.Operation)
	assert.Equal(t, "Step_0(location)", ise.State)
	assert.False(t, c.Exited())
	assert.Empty(t, router.events)
}

func TestController_Submit(t *testing.T) {
	c, router := createTestController(t, WithSessionID("session-1"))

	require.NoError(t, c.Advance())
	require.NoError(t, c.SetField("issueType", "missing_crosswalk"))
	require.NoError(t, c.SetField("description", "No crossing at 5th"))
	require.NoError(t, c.Advance())

	sub, err := c.Submit()
	require.NoError(t, err)
	require.NotNil(t, sub)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "report-issue", sub.WorkflowID)
	assert.Equal(t, "session-1", sub.SessionID)

	var issueType string
	require.NoError(t, sub.Field("issueType", &issueType))
	assert.Equal(t, "missing_crosswalk", issueType)

	assert.True(t, c.State().TerminalReached)
	assert.True(t, c.Exited())
	assert.Equal(t, walkflow.ExitReasonSubmitted, c.ExitReason())
	assert.Equal(t, 0, c.HistoryLen())

	require.Len(t, router.events, 1)
	assert.Equal(t, walkflow.ExitReasonSubmitted, router.events[0].Reason)
	require.NotNil(t, router.events[0].Submission)
	assert.Equal(t, sub.ID, router.events[0].Submission.ID)

	// Submission is detached from the caller's copy
	sub.Fields["issueType"] = []byte(`"other"`)
	require.NoError(t, c.Submission().Field("issueType", &issueType))
	assert.Equal(t, "missing_crosswalk", issueType)
}

func TestController_SubmitRunsTerminalValidator(t *testing.T) {
	wz := walkflow.NewWizardInstance("single", "Single")
	wz.AddStep(walkflow.NewStep("only", "Only",
		walkflow.WithValidator(walkflow.RequireFields("name"))))
	c, err := New(wz, WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	_, err = c.Submit()
	assert.True(t, walkflow.IsValidationFailure(err))
	assert.False(t, c.Exited())

	require.NoError(t, c.SetField("name", "walk"))
	_, err = c.Submit()
	require.NoError(t, err)
}

func TestController_SubmitWithLeavesDraftUntouched(t *testing.T) {
	wz := walkflow.NewWizardInstance("route", "Route")
	wz.AddStep(walkflow.NewStep("describe", "Describe",
		walkflow.WithValidator(walkflow.RequireFields("description"))))

	router := &recordingRouter{}
	c, err := New(wz, WithLogger(zerolog.Nop()), WithRouter(router))
	require.NoError(t, err)

	points := []walkflow.LatLng{{Lat: 1, Lon: 2}}

	// Blocked submit
	_, err = c.SubmitWith(map[string]any{"route": points})
	require.True(t, walkflow.IsValidationFailure(err))
	assert.NotContains(t, c.Fields(), "route")
	assert.Equal(t, 0, c.HistoryLen())

	// Unencodable extra field
	require.NoError(t, c.SetField("description", "Park loop"))
	_, err = c.SubmitWith(map[string]any{"route": func() {}})
	require.ErrorContains(t, err, "failed to marshal submission field route")
	assert.False(t, c.Exited())
	assert.NotContains(t, c.Fields(), "route")
	assert.Equal(t, 1, c.HistoryLen())

	sub, err := c.SubmitWith(map[string]any{"route": points})
	require.NoError(t, err)
	var got []walkflow.LatLng
	require.NoError(t, sub.Field("route", &got))
	assert.Equal(t, points, got)
	require.Len(t, router.events, 1)
	assert.Contains(t, router.events[0].Submission.Fields, "route")
}

func TestController_OperationsAfterExit(t *testing.T) {
	c, _ := createTestController(t)
	_, err := c.RequestCancel()
	require.NoError(t, err)

	assert.True(t, walkflow.IsInvalidState(c.SetField("description", "x")))
	assert.True(t, walkflow.IsInvalidState(c.ClearField("description")))
	assert.True(t, walkflow.IsInvalidState(c.Advance()))
	assert.True(t, walkflow.IsInvalidState(c.Retreat()))
	_, err = c.Undo()
	assert.True(t, walkflow.IsInvalidState(err))
	_, err = c.RequestCancel()
	assert.True(t, walkflow.IsInvalidState(err))
	_, err = c.Submit()
	assert.True(t, walkflow.IsInvalidState(err))
}

func TestController_Subscribe(t *testing.T) {
	c, _ := createTestController(t)

	var events []Event
	unsubscribe := c.Subscribe(func(e Event) {
		events = append(events, e)
	})

	require.NoError(t, c.SetField("description", "x"))
	require.NoError(t, c.Advance())
	require.Error(t, c.Advance())
	require.NoError(t, c.Retreat())
	_, err := c.Undo()
	require.NoError(t, err)

	require.Len(t, events, 5)
	assert.Equal(t, EventFieldChanged, events[0].Type)
	assert.Equal(t, "description", events[0].Field)
	assert.Equal(t, EventStepAdvanced, events[1].Type)
	assert.Equal(t, 1, events[1].State.CurrentStepIndex)
	assert.Equal(t, EventAdvanceBlocked, events[2].Type)
	assert.Equal(t, EventStepRetreated, events[3].Type)
	assert.Equal(t, EventUndoApplied, events[4].Type)

	unsubscribe()
	require.NoError(t, c.SetField("description", "y"))
	assert.Len(t, events, 5)
}
