package models

import "time"

// InscriptionStatus tracks a course registration request.
type InscriptionStatus string

const (
	InscriptionStatusPending   InscriptionStatus = "PENDING"
	InscriptionStatusApproved  InscriptionStatus = "APPROVED"
	InscriptionStatusRejected  InscriptionStatus = "REJECTED"
	InscriptionStatusCancelled InscriptionStatus = "CANCELLED"
)

// Inscription is a student's request to register for a course.
type Inscription struct {
	ID             string            `db:"id" json:"id"`
	StudentID      string            `db:"student_id" json:"student_id"`
	CourseID       string            `db:"course_id" json:"course_id"`
	AcademicPeriod string            `db:"academic_period" json:"academic_period"`
	Status         InscriptionStatus `db:"status" json:"status"`
	Notes          *string           `db:"notes" json:"notes,omitempty"`
	DecidedBy      *string           `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt      *time.Time        `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt      time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updated_at"`
}

// InscriptionDetail carries display fields for lists.
type InscriptionDetail struct {
	Inscription
	StudentName string `db:"student_name" json:"student_name"`
	CourseCode  string `db:"course_code" json:"course_code"`
	CourseName  string `db:"course_name" json:"course_name"`
}

// InscriptionFilter lists inscriptions.
type InscriptionFilter struct {
	StudentID      string
	CourseID       string
	AcademicPeriod string
	Status         InscriptionStatus
	Page           int
	PageSize       int
}
