// Package issuereport wires the three-step "report an issue" wizard.
package issuereport

import (
	"fmt"
	"slices"

	"github.com/sicko7947/walkflow"
	"github.com/sicko7947/walkflow/builder"
	"github.com/sicko7947/walkflow/wizard"
)

// WizardID identifies issue-report workflows
const WizardID = "report-issue"

// Field names
const (
	FieldLocation    = "location"
	FieldIssueType   = "issueType"
	FieldDescription = "description"
	FieldPhoto       = "photo"
)

// Step IDs
const (
	StepLocation = "location"
	StepDetails  = "details"
	StepPhoto    = "photo"
)

// MaxPhotoBytes is the largest photo accepted
const MaxPhotoBytes = 5 << 20

// DefaultLocation is where the map pin starts
var DefaultLocation = walkflow.LatLng{Lat: 40.7128, Lon: -74.006}

// IssueType is a selectable issue category
type IssueType struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// IssueTypes lists the categories in display order
var IssueTypes = []IssueType{
	{Value: "broken_sidewalk", Label: "Broken Sidewalk"},
	{Value: "missing_crosswalk", Label: "Missing Crosswalk"},
	{Value: "poor_lighting", Label: "Poor Lighting"},
	{Value: "accessibility_barrier", Label: "Accessibility Barrier"},
	{Value: "other", Label: "Other Issue"},
}

// PhotoRef describes an attached photo; the bytes live with the client
type PhotoRef struct {
	Name        string `json:"name" validate:"required"`
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/heic image/webp"`
	SizeBytes   int64  `json:"sizeBytes" validate:"gt=0,lte=5242880"`
}

// Report is the decoded form of an issue-report draft or submission
type Report struct {
	Location    walkflow.LatLng `json:"location"`
	IssueType   string          `json:"issueType"`
	Description string          `json:"description"`
	Photo       *PhotoRef       `json:"photo,omitempty"`
}

type locationInput struct {
	Location *walkflow.LatLng `json:"location" validate:"required"`
}

type detailsInput struct {
	IssueType   string `json:"issueType" validate:"required,oneof=broken_sidewalk missing_crosswalk poor_lighting accessibility_barrier other"`
	Description string `json:"description" validate:"required"`
}

type photoInput struct {
	Photo *PhotoRef `json:"photo" validate:"omitempty"`
}

var fieldValidator = walkflow.NewFieldValidator()

// Guide text for each step
const (
	guideLocation = "Select a location on the map where the issue is located. Be as precise as possible to help maintenance crews find the spot."
	guideDetails  = "Select the type of issue and provide a detailed description. More details help prioritize fixes."
	guidePhoto    = "Add a photo if possible (optional). Photos greatly increase the chance and speed of resolution."
)

// NewWizard builds the issue-report blueprint
func NewWizard() (*walkflow.Wizard, error) {
	return builder.NewWizard(WizardID, "Report an Issue").
		WithDescription("Report a walkability problem at a location on the map").
		WithInitialField(FieldLocation, DefaultLocation).
		WithCancelGuard(hasReportInput).
		Sequence(
			walkflow.NewStep(StepLocation, "Location",
				walkflow.WithGuide(guideLocation),
				walkflow.WithValidator(walkflow.AllOf(
					walkflow.ValidateStruct[locationInput](fieldValidator),
					validLocation,
				)),
			),
			walkflow.NewStep(StepDetails, "Issue Details",
				walkflow.WithGuide(guideDetails),
				walkflow.WithValidator(walkflow.ValidateStruct[detailsInput](fieldValidator)),
			),
			walkflow.NewStep(StepPhoto, "Photo",
				walkflow.WithGuide(guidePhoto),
				walkflow.WithDescription("Optional"),
				walkflow.WithValidator(walkflow.ValidateStruct[photoInput](fieldValidator)),
			),
		).
		Build()
}

// hasReportInput asks for confirmation once the user typed or attached anything.
// Moving the pin alone does not count.
func hasReportInput(draft *walkflow.DraftFormState) bool {
	return !draft.IsBlank(FieldIssueType) ||
		!draft.IsBlank(FieldDescription) ||
		!draft.IsBlank(FieldPhoto)
}

func validLocation(draft *walkflow.DraftFormState) error {
	loc, err := walkflow.GetTyped[walkflow.LatLng](draft, FieldLocation)
	if err != nil || !loc.Valid() {
		return walkflow.NewValidationError(FieldLocation, "location must be a valid coordinate")
	}
	return nil
}

// Screen is one issue-report workflow
type Screen struct {
	*wizard.Controller
}

// New enters a fresh issue-report workflow
func New(opts ...wizard.Option) (*Screen, error) {
	wz, err := NewWizard()
	if err != nil {
		return nil, err
	}
	c, err := wizard.New(wz, opts...)
	if err != nil {
		return nil, err
	}
	return &Screen{Controller: c}, nil
}

// SelectLocation records a map click
func (s *Screen) SelectLocation(p walkflow.LatLng) error {
	if err := checkLocation(p); err != nil {
		return err
	}
	return s.SetField(FieldLocation, p)
}

// SetIssueType selects the issue category
func (s *Screen) SetIssueType(value string) error {
	if err := checkIssueType(value); err != nil {
		return err
	}
	return s.SetField(FieldIssueType, value)
}

// SetDescription commits the description text (on blur, not per keystroke)
func (s *Screen) SetDescription(text string) error {
	return s.SetField(FieldDescription, text)
}

// AttachPhoto attaches or replaces the photo
func (s *Screen) AttachPhoto(photo PhotoRef) error {
	if err := checkPhoto(photo); err != nil {
		return err
	}
	return s.SetField(FieldPhoto, photo)
}

// Edit is a batch of report edits; nil fields are left alone
type Edit struct {
	Location    *walkflow.LatLng
	IssueType   *string
	Description *string
	Photo       *PhotoRef
}

// ApplyEdit checks every field of the batch, then commits them in field order.
// A rejected field leaves the draft untouched.
func (s *Screen) ApplyEdit(e Edit) error {
	if e.Location != nil {
		if err := checkLocation(*e.Location); err != nil {
			return err
		}
	}
	if e.IssueType != nil {
		if err := checkIssueType(*e.IssueType); err != nil {
			return err
		}
	}
	if e.Photo != nil {
		if err := checkPhoto(*e.Photo); err != nil {
			return err
		}
	}

	if e.Location != nil {
		if err := s.SetField(FieldLocation, *e.Location); err != nil {
			return err
		}
	}
	if e.IssueType != nil {
		if err := s.SetField(FieldIssueType, *e.IssueType); err != nil {
			return err
		}
	}
	if e.Description != nil {
		if err := s.SetField(FieldDescription, *e.Description); err != nil {
			return err
		}
	}
	if e.Photo != nil {
		if err := s.SetField(FieldPhoto, *e.Photo); err != nil {
			return err
		}
	}
	return nil
}

func checkLocation(p walkflow.LatLng) error {
	if !p.Valid() {
		return walkflow.NewValidationError(FieldLocation, fmt.Sprintf("coordinate %s is out of range", p))
	}
	return nil
}

func checkIssueType(value string) error {
	if !slices.ContainsFunc(IssueTypes, func(t IssueType) bool { return t.Value == value }) {
		return walkflow.NewValidationError(FieldIssueType, fmt.Sprintf("unknown issue type %q", value))
	}
	return nil
}

func checkPhoto(photo PhotoRef) error {
	if err := fieldValidator.Struct(photo); err != nil {
		if photo.SizeBytes > MaxPhotoBytes {
			return walkflow.NewValidationError(FieldPhoto, "photos are limited to 5MB")
		}
		return walkflow.NewValidationError(FieldPhoto, fmt.Sprintf("invalid photo: %v", err))
	}
	return nil
}

// DetachPhoto removes the photo
func (s *Screen) DetachPhoto() error {
	return s.ClearField(FieldPhoto)
}

// Guide returns the help text of the active step
func (s *Screen) Guide() string {
	return s.CurrentStep().Guide
}

// Report decodes the current draft
func (s *Screen) Report() (Report, error) {
	var r Report
	if err := s.Decode(&r); err != nil {
		return Report{}, err
	}
	return r, nil
}

// DecodeReport decodes a submitted issue report
func DecodeReport(sub *walkflow.Submission) (Report, error) {
	if sub.WorkflowID != WizardID {
		return Report{}, fmt.Errorf("submission %s belongs to %s, not %s", sub.ID, sub.WorkflowID, WizardID)
	}

	var r Report
	if err := sub.Field(FieldLocation, &r.Location); err != nil {
		return Report{}, err
	}
	if err := sub.Field(FieldIssueType, &r.IssueType); err != nil {
		return Report{}, err
	}
	if err := sub.Field(FieldDescription, &r.Description); err != nil {
		return Report{}, err
	}
	if _, ok := sub.Fields[FieldPhoto]; ok {
		r.Photo = &PhotoRef{}
		if err := sub.Field(FieldPhoto, r.Photo); err != nil {
			return Report{}, err
		}
	}
	return r, nil
}
