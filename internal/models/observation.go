package models

import "time"

// WriterRole identifies who recorded an observation. The role drives the
// initial status: teacher records are approved on creation, self and peer
// records enter the approval queue as pending.
type WriterRole string

const (
	WriterTeacher WriterRole = "teacher"
	WriterPeer    WriterRole = "peer"
	WriterSelf    WriterRole = "self"
)

// ObservationCategory is the situational context of an observation.
type ObservationCategory string

const (
	CategoryClass        ObservationCategory = "수업"
	CategoryRelationship ObservationCategory = "관계"
	CategoryDailyLife    ObservationCategory = "생활"
	CategoryOther        ObservationCategory = "기타"
)

// ValidCategory reports whether the value is one of the fixed categories.
func ValidCategory(c ObservationCategory) bool {
	switch c {
	case CategoryClass, CategoryRelationship, CategoryDailyLife, CategoryOther:
		return true
	default:
		return false
	}
}

// ObservationStatus tracks the approval lifecycle. pending is the only
// non-terminal state; approved and rejected are terminal.
type ObservationStatus string

const (
	StatusPending  ObservationStatus = "pending"
	StatusApproved ObservationStatus = "approved"
	StatusRejected ObservationStatus = "rejected"
)

// Observation is a recorded claim that a student demonstrated a strength.
// Content is immutable after creation; only the status field transitions.
type Observation struct {
	ID         string              `db:"id" json:"id"`
	TargetID   string              `db:"target_id" json:"target_id"`
	WriterID   string              `db:"writer_id" json:"writer_id"`
	TeacherID  *string             `db:"teacher_id" json:"teacher_id,omitempty"`
	WriterRole WriterRole          `db:"writer_role" json:"writer_role"`
	WriterName string              `db:"writer_name" json:"writer_name"`
	TargetName string              `db:"target_name" json:"target_name"`
	Category   ObservationCategory `db:"category" json:"category"`
	StrengthID string              `db:"strength_id" json:"strength_id"`
	Content    string              `db:"content" json:"content"`
	Status     ObservationStatus   `db:"status" json:"status"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

// SubmitObservationRequest records a new observation. The writer's role is
// derived from the authenticated caller, never from the payload.
type SubmitObservationRequest struct {
	TargetID   string              `json:"target_id" validate:"required"`
	Category   ObservationCategory `json:"category" validate:"required"`
	StrengthID string              `json:"strength_id" validate:"required"`
	Content    string              `json:"content" validate:"required,max=500"`
}

// DecisionRequest approves or rejects a pending observation.
type DecisionRequest struct {
	Status ObservationStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ObservationResult pairs a written observation with the target's garden
// level after the write.
type ObservationResult struct {
	Observation *Observation `json:"observation"`
	GardenLevel int          `json:"garden_level"`
}

// GardenView is the student garden screen payload.
type GardenView struct {
	StudentID     string          `json:"student_id"`
	StudentName   string          `json:"student_name"`
	ApprovedCount int             `json:"approved_count"`
	GardenLevel   int             `json:"garden_level"`
	Stage         GrowthStage     `json:"stage"`
	NextStage     *GrowthStage    `json:"next_stage,omitempty"`
	Strengths     []StrengthCount `json:"strengths"`
}

// ObservationFilter lists observations; all criteria are combinable.
// Results are always ordered newest first.
type ObservationFilter struct {
	TargetID  string
	WriterID  string
	TeacherID string
	Status    ObservationStatus
}

// StrengthCount aggregates approved observations per strength for a student.
type StrengthCount struct {
	StrengthID string `db:"strength_id" json:"strength_id"`
	Count      int    `db:"count" json:"count"`
}
