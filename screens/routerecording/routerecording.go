// Package routerecording wires the record-then-describe route workflow.
package routerecording

import (
	"context"
	"fmt"
	"math"

	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/builder"
	"github.com/sicko7947/walkflow/wizard"
)

// WizardID identifies route-recording workflows
const WizardID = "record-route"

// Field names
const (
	FieldRecordingState  = "recordingState"
	FieldRecordingMethod = "recordingMethod"
	FieldDescription     = "description"
	FieldRoute           = "route"
)

// Step IDs
const (
	StepRecord   = "record"
	StepDescribe = "describe"
)

// RecordingState tracks the geolocation collaborator's session
type RecordingState string

const (
	StateRecording RecordingState = "recording"
	StatePaused    RecordingState = "paused"
	StateStopped   RecordingState = "stopped"
)

// RecordingMethod selects how points are captured
type RecordingMethod string

const (
	MethodAutomatic RecordingMethod = "automatic"
	MethodManual    RecordingMethod = "manual"
)

// DefaultDescription is used in exports when the user wrote nothing
const DefaultDescription = "Recorded route"

const earthRadiusKm = 6371.0

// Route is the decoded form of a route submission
type Route struct {
	Method      RecordingMethod   `json:"recordingMethod"`
	Description string            `json:"description"`
	Points      []walkflow.LatLng `json:"route"`
}

// NewWizard builds the route-recording blueprint
func NewWizard() (*walkflow.Wizard, error) {
	return builder.NewWizard(WizardID, "Record Route").
		WithDescription("Record a walk and share it with a description").
		WithInitialField(FieldRecordingState, StateRecording).
		WithInitialField(FieldRecordingMethod, MethodAutomatic).
		WithInitialField(FieldDescription, "").
		WithCancelGuard(needsExitConfirmation).
		Sequence(
			walkflow.NewStep(StepRecord, "Record",
				walkflow.WithGuide("Walk your route. Pause any time, and stop when you are done."),
				walkflow.WithValidator(requireStopped),
			),
			walkflow.NewStep(StepDescribe, "Describe",
				walkflow.WithGuide("Describe your route (e.g., Morning walk through the park)."),
			),
		).
		Build()
}

// needsExitConfirmation asks before discarding a recording that is still running
func needsExitConfirmation(draft *walkflow.DraftFormState) bool {
	state := walkflow.GetOrDefault(draft, FieldRecordingState, StateRecording)
	return state != StateStopped || draft.IsDirty()
}

func requireStopped(draft *walkflow.DraftFormState) error {
	state := walkflow.GetOrDefault(draft, FieldRecordingState, StateRecording)
	if state != StateStopped {
		return walkflow.NewValidationError(FieldRecordingState, "stop the recording before describing the route")
	}
	return nil
}

// Screen is one route-recording workflow.
// Points are fed by the geolocation collaborator and are not undoable.
type Screen struct {
	*wizard.Controller

	exporter walkflow.RouteExporter
	points   []walkflow.LatLng
}

// New enters a fresh route-recording workflow; recording starts immediately
func New(exporter walkflow.RouteExporter, opts ...wizard.Option) (*Screen, error) {
	wz, err := NewWizard()
	if err != nil {
		return nil, err
	}
	c, err := wizard.New(wz, opts...)
	if err != nil {
		return nil, err
	}
	return &Screen{Controller: c, exporter: exporter}, nil
}

// RecordingState returns the current recording state
func (s *Screen) RecordingState() RecordingState {
	var state RecordingState
	if err := s.Field(FieldRecordingState, &state); err != nil {
		return StateRecording
	}
	return state
}

// RecordingMethod returns the current capture method
func (s *Screen) RecordingMethod() RecordingMethod {
	var method RecordingMethod
	if err := s.Field(FieldRecordingMethod, &method); err != nil {
		return MethodAutomatic
	}
	return method
}

// Pause suspends recording
func (s *Screen) Pause() error {
	return s.transition("Pause", StatePaused, StateRecording)
}

// Resume continues a paused recording
func (s *Screen) Resume() error {
	return s.transition("Resume", StateRecording, StatePaused)
}

// Stop ends recording; the describe step becomes reachable
func (s *Screen) Stop() error {
	return s.transition("Stop", StateStopped, StateRecording, StatePaused)
}

func (s *Screen) transition(op string, to RecordingState, from ...RecordingState) error {
	current := s.RecordingState()
	for _, allowed := range from {
		if current == allowed {
			return s.SetField(FieldRecordingState, to)
		}
	}
	return walkflow.NewInvalidStateError(op, string(current))
}

// ToggleMethod switches between automatic and manual capture while a recording is open
func (s *Screen) ToggleMethod() error {
	if s.RecordingState() == StateStopped {
		return walkflow.NewInvalidStateError("ToggleMethod", string(StateStopped))
	}
	next := MethodManual
	if s.RecordingMethod() == MethodManual {
		next = MethodAutomatic
	}
	return s.SetField(FieldRecordingMethod, next)
}

// SetDescription commits the route description
func (s *Screen) SetDescription(text string) error {
	return s.SetField(FieldDescription, text)
}

// AddPoint appends a position sample. Samples are dropped unless recording.
func (s *Screen) AddPoint(p walkflow.LatLng) bool {
	if s.Exited() || s.RecordingState() != StateRecording || !p.Valid() {
		return false
	}
	s.points = append(s.points, p)
	return true
}

// Points returns a copy of the recorded points in order
func (s *Screen) Points() []walkflow.LatLng {
	out := make([]walkflow.LatLng, len(s.points))
	copy(out, s.points)
	return out
}

// DistanceKm sums great-circle distances between consecutive points
func (s *Screen) DistanceKm() float64 {
	var total float64
	for i := 1; i < len(s.points); i++ {
		total += haversineKm(s.points[i-1], s.points[i])
	}
	return total
}

func haversineKm(a, b walkflow.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Export hands the stopped route to the export collaborator
func (s *Screen) Export(ctx context.Context, format walkflow.ExportFormat) (walkflow.ExportReference, error) {
	if s.exporter == nil {
		return walkflow.ExportReference{}, fmt.Errorf("no exporter configured")
	}
	if !format.Valid() {
		return walkflow.ExportReference{}, walkflow.NewValidationError("format", fmt.Sprintf("unsupported export format %q", format))
	}
	if state := s.RecordingState(); state != StateStopped {
		return walkflow.ExportReference{}, walkflow.NewInvalidStateError("Export", string(state))
	}

	var description string
	if err := s.Field(FieldDescription, &description); err != nil || description == "" {
		description = DefaultDescription
	}

	ref, err := s.exporter.Export(ctx, walkflow.ExportRequest{
		Points:      s.Points(),
		Description: description,
		Format:      format,
	})
	if err != nil {
		return walkflow.ExportReference{}, fmt.Errorf("failed to export route: %w", err)
	}
	return ref, nil
}

// Submit submits the route with the recorded points attached.
// The points go to the submission only; the draft and undo history are untouched.
func (s *Screen) Submit() (*walkflow.Submission, error) {
	return s.SubmitWith(map[string]any{FieldRoute: s.Points()})
}

// DecodeRoute decodes a submitted route
func DecodeRoute(sub *walkflow.Submission) (Route, error) {
	if sub.WorkflowID != WizardID {
		return Route{}, fmt.Errorf("submission %s belongs to %s, not %s", sub.ID, sub.WorkflowID, WizardID)
	}

	var r Route
	if err := sub.Field(FieldRecordingMethod, &r.Method); err != nil {
		return Route{}, err
	}
	if err := sub.Field(FieldDescription, &r.Description); err != nil {
		return Route{}, err
	}
	if err := sub.Field(FieldRoute, &r.Points); err != nil {
		return Route{}, err
	}
	return r, nil
}
