package models

import "time"

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus tracks async export processing.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "queued"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusFinished   ExportStatus = "finished"
	ExportStatusFailed     ExportStatus = "failed"
)

// ExportRequest queues an observation-log export. A nil TargetID exports the
// whole roster.
type ExportRequest struct {
	TargetID *string      `json:"target_id,omitempty"`
	Format   ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJob is a queued observation-log export owned by a teacher.
type ExportJob struct {
	ID           string       `db:"id" json:"id"`
	TeacherID    string       `db:"teacher_id" json:"teacher_id"`
	TargetID     *string      `db:"target_id" json:"target_id,omitempty"`
	Format       ExportFormat `db:"format" json:"format"`
	Status       ExportStatus `db:"status" json:"status"`
	ResultURL    *string      `db:"result_url" json:"result_url,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finished_at,omitempty"`
}
