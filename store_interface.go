package walkflow

import "context"

// SubmissionStore is the outbox a router can hand submitted workflows to.
// The wizard itself never persists anything.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]*Submission, error)
}

// SubmissionFilter defines filtering criteria for submissions
type SubmissionFilter struct {
	WorkflowID string
	Limit      int
}
