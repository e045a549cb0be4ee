package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the account roles understood by the RBAC system.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// UserProfile represents a teacher or student stored in the users table.
// GardenLevel is a cached derivation of the student's approved-observation
// count; it is recomputed inside the same transaction as every
// approval-affecting observation write.
type UserProfile struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Email         *string        `db:"email" json:"email,omitempty"`
	PasswordHash  string         `db:"password_hash" json:"-"`
	Role          UserRole       `db:"role" json:"role"`
	TeacherID     *string        `db:"teacher_id" json:"teacher_id,omitempty"`
	StudentNumber *int           `db:"student_number" json:"student_number,omitempty"`
	Strengths     pq.StringArray `db:"strengths" json:"strengths"`
	GardenLevel   int            `db:"garden_level" json:"garden_level"`
	Active        bool           `db:"active" json:"active"`
	LastLogin     *time.Time     `db:"last_login" json:"last_login,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// CreateStudentRequest provisions a student account on a teacher's roster.
// Password is optional; when empty the well-known classroom default is used.
type CreateStudentRequest struct {
	Name          string `json:"name" validate:"required"`
	StudentNumber int    `json:"student_number" validate:"required,min=1"`
	Password      string `json:"password" validate:"omitempty,min=6"`
}

// UpdateStrengthsRequest replaces a student's signature strength selection.
type UpdateStrengthsRequest struct {
	Strengths []string `json:"strengths" validate:"required,max=24"`
}

// ResetStudentPasswordRequest sets a new password on a roster student.
// Empty means reset to the classroom default.
type ResetStudentPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"omitempty,min=6"`
}

// StudentFilter captures criteria for roster listings.
type StudentFilter struct {
	TeacherID string
	Search    string
	Active    *bool
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
