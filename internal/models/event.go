package models

import "time"

// EventType classifies academic calendar entries.
type EventType string

const (
	EventTypeExam     EventType = "EXAM"
	EventTypeHoliday  EventType = "HOLIDAY"
	EventTypeDeadline EventType = "DEADLINE"
	EventTypeActivity EventType = "ACTIVITY"
	EventTypeOther    EventType = "OTHER"
)

// AcademicEvent is a dated entry on the academic calendar.
type AcademicEvent struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	EventType   EventType `db:"event_type" json:"event_type"`
	StartAt     time.Time `db:"start_at" json:"start_at"`
	EndAt       time.Time `db:"end_at" json:"end_at"`
	Location    *string   `db:"location" json:"location,omitempty"`
	CourseID    *string   `db:"course_id" json:"course_id,omitempty"`
	CreatedBy   string    `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// EventFilter bounds calendar queries. From/To match events overlapping the window.
type EventFilter struct {
	From      *time.Time
	To        *time.Time
	EventType EventType
	CourseID  string
	CourseIDs []string
	Page      int
	PageSize  int
}
