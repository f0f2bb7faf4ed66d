package models

import "time"

// Student is a learner registered in a degree program.
type Student struct {
	ID            string    `db:"id" json:"id"`
	UserID        *string   `db:"user_id" json:"user_id,omitempty"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	Program       string    `db:"program" json:"program"`
	Semester      int       `db:"semester" json:"semester"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Program   string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
