package store

import "fmt"

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrEntityType = "entity_type"

	// Entity types
	EntityTypeSubmission = "Submission"

	// Index names
	IndexWorkflowIndex = "GSI1"
)

// Key builders for single-table design

// Submission keys: PK=SUBMISSION#{id}, SK=META
func submissionPK(id string) string {
	return fmt.Sprintf("SUBMISSION#%s", id)
}

func submissionSK() string {
	return "META"
}

// Submissions by workflow: GSI1PK=WF#{workflowID}, GSI1SK={submission ULID}.
// ULIDs sort by creation time, so the index reads in submission order.
func submissionGSI1PK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}

func submissionGSI1SK(id string) string {
	return id
}
