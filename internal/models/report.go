package models

// ReportMode selects the drafting prompt style.
type ReportMode string

const (
	// ReportModeStandard drafts from the observation data with the plain
	// clipped-sentence instruction set.
	ReportModeStandard ReportMode = "standard"
	// ReportModeExampleBased additionally feeds a reference library of
	// finished report texts as a style guide.
	ReportModeExampleBased ReportMode = "example-based"
)

// DraftReportRequest asks for an AI draft of a student's behavioral report.
// The API key travels with the request and is never persisted.
type DraftReportRequest struct {
	StudentID string     `json:"student_id" validate:"required"`
	APIKey    string     `json:"api_key"`
	Mode      ReportMode `json:"mode" validate:"omitempty,oneof=standard example-based"`
}

// DraftReportResponse carries the generated draft.
type DraftReportResponse struct {
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name"`
	Mode          ReportMode `json:"mode"`
	EvidenceCount int        `json:"evidence_count"`
	Text          string     `json:"text"`
}
