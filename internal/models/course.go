package models

import "time"

// Course is an offering students can enrol in for an academic period.
type Course struct {
	ID             string    `db:"id" json:"id"`
	Code           string    `db:"code" json:"code"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	Credits        int       `db:"credits" json:"credits"`
	Capacity       int       `db:"capacity" json:"capacity"`
	InstructorID   *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	AcademicPeriod string    `db:"academic_period" json:"academic_period"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter lists courses.
type CourseFilter struct {
	Search         string
	AcademicPeriod string
	InstructorID   string
	Active         *bool
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
