package models

import "time"

// Instructor is a member of teaching staff.
type Instructor struct {
	ID             string    `db:"id" json:"id"`
	UserID         *string   `db:"user_id" json:"user_id,omitempty"`
	EmployeeNumber string    `db:"employee_number" json:"employee_number"`
	FullName       string    `db:"full_name" json:"full_name"`
	Email          string    `db:"email" json:"email"`
	Department     string    `db:"department" json:"department"`
	Active         bool      `db:"active" json:"active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter captures filtering options for listing instructors.
type InstructorFilter struct {
	Search     string
	Department string
	Active     *bool
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
