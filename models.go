package walkflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// LoadStatus represents the current state of a resilient load
type LoadStatus string

const (
	LoadStatusIdle    LoadStatus = "IDLE"
	LoadStatusLoading LoadStatus = "LOADING"
	LoadStatusFailed  LoadStatus = "FAILED"
	LoadStatusSuccess LoadStatus = "SUCCESS"
)

// IsTerminal returns true if the status is settled (no load is in progress)
func (s LoadStatus) IsTerminal() bool {
	return s == LoadStatusFailed || s == LoadStatusSuccess
}

// String returns the string representation
func (s LoadStatus) String() string {
	return string(s)
}

// ExitReason describes why a workflow was left
type ExitReason string

const (
	ExitReasonCancelled ExitReason = "CANCELLED"
	ExitReasonSubmitted ExitReason = "SUBMITTED"
)

// String returns the string representation
func (r ExitReason) String() string {
	return string(r)
}

// WorkflowState is the step position of a wizard instance
type WorkflowState struct {
	CurrentStepIndex int  `json:"currentStepIndex"`
	CancelConfirming bool `json:"cancelConfirming"`
	TerminalReached  bool `json:"terminalReached"`
}

// LoadAttempt tracks the retry bookkeeping of a resilient load
type LoadAttempt struct {
	AttemptCount  int        `json:"attemptCount"`
	MaxAttempts   int        `json:"maxAttempts"` // automatic retries after the first attempt
	Status        LoadStatus `json:"status"`
	LastError     *LoadError `json:"lastError,omitempty"`
	ParamsVersion uint64     `json:"paramsVersion"`
}

// LatLng is a WGS84 coordinate pair
type LatLng struct {
	Lat float64 `json:"lat" dynamodbav:"lat"`
	Lon float64 `json:"lon" dynamodbav:"lon"`
}

// Valid reports whether the coordinate lies within WGS84 bounds
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// String returns "lat, lon"
func (p LatLng) String() string {
	return fmt.Sprintf("%g, %g", p.Lat, p.Lon)
}

// ExportFormat selects the document type produced by the export collaborator
type ExportFormat string

const (
	ExportFormatGPX     ExportFormat = "gpx"
	ExportFormatKML     ExportFormat = "kml"
	ExportFormatGeoJSON ExportFormat = "geojson"
)

// Valid reports whether the format is one of the supported selectors
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatGPX, ExportFormatKML, ExportFormatGeoJSON:
		return true
	}
	return false
}

// String returns the string representation
func (f ExportFormat) String() string {
	return string(f)
}

// ExportReference points at a document produced by the export collaborator
type ExportReference struct {
	Path      string       `json:"path"`
	Format    ExportFormat `json:"format"`
	SizeBytes int64        `json:"sizeBytes"`
}

// Submission is the immutable record produced by a successful wizard submit
type Submission struct {
	// Identity
	ID         string `json:"id" dynamodbav:"submission_id"`
	WorkflowID string `json:"workflowId" dynamodbav:"workflow_id"`
	SessionID  string `json:"sessionId" dynamodbav:"session_id"`

	// Payload (values serialized as JSON)
	Fields map[string]json.RawMessage `json:"fields" dynamodbav:"fields"`

	// Timing
	SubmittedAt time.Time `json:"submittedAt" dynamodbav:"submitted_at"`
}

// Field decodes a submitted field into target
func (s *Submission) Field(name string, target any) error {
	raw, ok := s.Fields[name]
	if !ok {
		return fmt.Errorf("field %s not found in submission %s", name, s.ID)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal field %s: %w", name, err)
	}
	return nil
}

// Clone returns a structurally independent copy
func (s *Submission) Clone() *Submission {
	c := *s
	c.Fields = cloneFields(s.Fields)
	return &c
}

// ExitEvent is handed to the router collaborator when a workflow ends
type ExitEvent struct {
	WorkflowID string
	SessionID  string
	Reason     ExitReason
	Submission *Submission // set only when Reason is ExitReasonSubmitted
}

// Router is the navigation collaborator; the core never navigates itself
type Router interface {
	Exit(event ExitEvent)
}

// RouterFunc adapts a function to the Router interface
type RouterFunc func(event ExitEvent)

// Exit calls f(event)
func (f RouterFunc) Exit(event ExitEvent) {
	f(event)
}

// ExportRequest is what a screen hands the export collaborator
type ExportRequest struct {
	Points      []LatLng     `json:"points"`
	Description string       `json:"description"`
	Format      ExportFormat `json:"format"`
}

// RouteExporter is the file-export collaborator; encoding is not part of the core
type RouteExporter interface {
	Export(ctx context.Context, req ExportRequest) (ExportReference, error)
}
